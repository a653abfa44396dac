package condor

import (
	"time"

	"condorserver/models"
)

const (
	MinPlayers  = 6
	MaxPlayers  = 8
	TotalRounds = 3

	// PermanentBlockRound は「以後ずっと封鎖」を表すBlockedRoundの値。通常のラウンド番号の外側
	PermanentBlockRound = 99
)

// Rules はゲームごとに変えられるルール値
type Rules struct {
	MinPlayers        int
	MaxPlayers        int
	TotalRounds       int
	ArtifactsPerRound int

	// 鑑人投票の成立に必要な割合。必要票数は floor(有権者数*割合)+1
	IdentificationQuorum float64
	WinningScore         int

	ActionDuration         time.Duration
	DiscussionDuration     time.Duration
	VotingDuration         time.Duration
	IdentificationDuration time.Duration
}

// DefaultRules は標準ルール
func DefaultRules() Rules {
	return Rules{
		MinPlayers:             MinPlayers,
		MaxPlayers:             MaxPlayers,
		TotalRounds:            TotalRounds,
		ArtifactsPerRound:      4,
		IdentificationQuorum:   0.5,
		WinningScore:           6,
		ActionDuration:         120 * time.Second,
		DiscussionDuration:     180 * time.Second,
		VotingDuration:         60 * time.Second,
		IdentificationDuration: 120 * time.Second,
	}
}

// RulesFromConfig はデフォルトルールに設定ファイルの値を重ねる
func RulesFromConfig(cfg models.Config) Rules {
	rules := DefaultRules()
	if cfg.WinningScore > 0 {
		rules.WinningScore = cfg.WinningScore
	}
	if cfg.ArtifactsPerRound > 0 && cfg.ArtifactsPerRound <= len(ZodiacOrder)/TotalRounds {
		rules.ArtifactsPerRound = cfg.ArtifactsPerRound
	}
	if cfg.IdentificationQuorum > 0 && cfg.IdentificationQuorum < 1 {
		rules.IdentificationQuorum = cfg.IdentificationQuorum
	}
	if cfg.ActionSeconds > 0 {
		rules.ActionDuration = time.Duration(cfg.ActionSeconds) * time.Second
	}
	if cfg.DiscussionSeconds > 0 {
		rules.DiscussionDuration = time.Duration(cfg.DiscussionSeconds) * time.Second
	}
	if cfg.VotingSeconds > 0 {
		rules.VotingDuration = time.Duration(cfg.VotingSeconds) * time.Second
	}
	return rules
}

// phaseDuration はフェーズの制限時間。0なら期限なし
func (r Rules) phaseDuration(phase models.Phase) time.Duration {
	switch phase {
	case models.PhaseAction:
		return r.ActionDuration
	case models.PhaseDiscussion:
		return r.DiscussionDuration
	case models.PhaseVoting:
		return r.VotingDuration
	case models.PhaseIdentification:
		return r.IdentificationDuration
	}
	return 0
}
