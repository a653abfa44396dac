package models

import (
	"time"

	"gorm.io/gorm"
)

// GameStatus はルーム全体の状態
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusSelecting GameStatus = "selecting"
	StatusPlaying   GameStatus = "playing"
	StatusFinished  GameStatus = "finished"
)

// Phase はラウンド内のサブフェーズ
type Phase string

const (
	PhaseAction         Phase = "action"
	PhaseDiscussion     Phase = "discussion"
	PhaseVoting         Phase = "voting"
	PhaseResult         Phase = "result"
	PhaseIdentification Phase = "identification"
	PhaseFinished       Phase = "finished"
)

// Game モデルの定義。RoomNameは招待用の5桁コード
type Game struct {
	gorm.Model
	RoomName    string     `gorm:"uniqueIndex;size:5;not null"`
	HostUserID  uint       `gorm:"not null"`
	Status      GameStatus `gorm:"index;not null;default:'waiting'"`
	PlayerCount int        `gorm:"not null;default:0"`
	Score       int        `gorm:"not null;default:0"` // 選ばれた本物の獣首の累計
	ActionSeq   uint       `gorm:"not null;default:0"` // Actionログの採番カウンタ
	Winner      string     // "good" / "bad"、決定前は空
}

// Player はGameに参加しているユーザー。LeftAtがnilの間だけアクティブ
type Player struct {
	gorm.Model
	GameID       uint   `gorm:"index;not null"`
	UserID       uint   `gorm:"index;not null"`
	Nickname     string `gorm:"size:32"`
	Role         string `gorm:"size:16"` // 未選択は空文字
	Color        string `gorm:"size:16"` // 未選択は空文字
	IsHost       bool   `gorm:"not null;default:false"`
	IsReady      bool   `gorm:"not null;default:false"`
	IsOnline     bool   `gorm:"not null;default:false"`
	LeftAt       *time.Time
	BlockedRound int `gorm:"not null;default:0"` // 0は封鎖なし
}

// Active は退出していないプレイヤーかどうか
func (p Player) Active() bool {
	return p.LeftAt == nil
}

// Round はGame内の1ラウンド
type Round struct {
	gorm.Model
	GameID      uint  `gorm:"uniqueIndex:idx_round_game_round;not null"`
	Round       int   `gorm:"uniqueIndex:idx_round_game_round;not null"`
	Phase       Phase `gorm:"index;not null;default:'action'"`
	PhaseEndsAt *time.Time
}

// Artifact はラウンドごとの獣首
type Artifact struct {
	gorm.Model
	GameID    uint   `gorm:"uniqueIndex:idx_artifact_round_zodiac;not null"`
	Round     int    `gorm:"uniqueIndex:idx_artifact_round_zodiac;not null"`
	Zodiac    string `gorm:"uniqueIndex:idx_artifact_round_zodiac;size:4;not null"`
	IsGenuine bool   `gorm:"not null"`
	IsBlocked bool   `gorm:"not null;default:false"`
	IsSwapped bool   `gorm:"not null;default:false"`
	Votes     int    `gorm:"not null;default:0"`
	VoteRank  *int   // 1か2、それ以外はnil
}
