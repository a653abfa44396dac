package condor

import (
	"condorserver/models"
)

// Camp は役職の陣営
type Camp string

const (
	CampGood Camp = "good"
	CampBad  Camp = "bad"
)

// 役職名
const (
	RoleXuYuan      = "許愿"
	RoleFangZhen    = "方震"
	RoleHuangYanyan = "黃煙煙"
	RoleKidoKana    = "木戶加奈"
	RoleJiYunfu     = "姬雲浮"
	RoleLaoChaofeng = "老朝奉" // 首謀の贋作師
	RoleYaoBuran    = "藥不然"
	RoleZhengGuoqu  = "鄭國渠"
)

// Role は役職の静的な定義
type Role struct {
	Name string
	Camp Camp

	// ラウンドごとのスキル使用回数
	Quotas map[models.ActionKind]int
	// スキルを使えるラウンド。nilなら全ラウンド
	SkillRounds []int

	// この人数以上のときだけ選べる
	MinPlayers int
	// 鑑人投票に参加できない
	IdentificationExempt bool
	// inspect_personで善陣営に見える
	ConcealedCamp bool
	// 攻撃を受けると以後ずっと封鎖される
	PermanentOnAttack bool
}

// SkillAllowedIn はroundでスキルが使えるかどうか
func (r Role) SkillAllowedIn(round int) bool {
	if r.SkillRounds == nil {
		return true
	}
	for _, n := range r.SkillRounds {
		if n == round {
			return true
		}
	}
	return false
}

// ApparentCamp はinspect_personで見える陣営
func (r Role) ApparentCamp() Camp {
	if r.ConcealedCamp {
		return CampGood
	}
	return r.Camp
}

var roles = []Role{
	{Name: RoleXuYuan, Camp: CampGood, Quotas: map[models.ActionKind]int{models.ActionInspectArtifact: 2}},
	{Name: RoleFangZhen, Camp: CampGood, Quotas: map[models.ActionKind]int{models.ActionInspectPerson: 1}},
	{Name: RoleHuangYanyan, Camp: CampGood, Quotas: map[models.ActionKind]int{models.ActionInspectArtifact: 1}},
	{Name: RoleKidoKana, Camp: CampGood, Quotas: map[models.ActionKind]int{models.ActionInspectArtifact: 1}},
	{Name: RoleJiYunfu, Camp: CampGood, Quotas: map[models.ActionKind]int{models.ActionInspectArtifact: 1}, MinPlayers: 7, PermanentOnAttack: true},
	{Name: RoleLaoChaofeng, Camp: CampBad, Quotas: map[models.ActionKind]int{models.ActionBlock: 1}, ConcealedCamp: true},
	{Name: RoleYaoBuran, Camp: CampBad, Quotas: map[models.ActionKind]int{models.ActionAttack: 1}},
	{Name: RoleZhengGuoqu, Camp: CampBad, Quotas: map[models.ActionKind]int{models.ActionSwap: 1}, SkillRounds: []int{2, 3}, MinPlayers: 8, IdentificationExempt: true},
}

// LookupRole は役職名から定義を引く
func LookupRole(name string) (Role, bool) {
	for _, r := range roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// RolesForPlayerCount はn人のゲームで選べる役職
func RolesForPlayerCount(n int) []Role {
	var out []Role
	for _, r := range roles {
		if r.MinPlayers <= n {
			out = append(out, r)
		}
	}
	return out
}

// Colors はプレイヤーが選べる色
var Colors = []string{"red", "orange", "yellow", "green", "cyan", "blue", "purple", "white"}

func validColor(color string) bool {
	for _, c := range Colors {
		if c == color {
			return true
		}
	}
	return false
}

// ZodiacOrder は同票のときの優先順。先にあるほど上位
var ZodiacOrder = []string{"鼠", "牛", "虎", "兔", "龍", "蛇", "馬", "羊", "猴", "雞", "狗", "豬"}

// zodiacIndex は未知のラベルを最後尾に置く
func zodiacIndex(label string) int {
	for i, z := range ZodiacOrder {
		if z == label {
			return i
		}
	}
	return len(ZodiacOrder)
}
