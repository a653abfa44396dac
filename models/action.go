package models

import (
	"gorm.io/gorm"
)

// ActionKind はスキルの種類
type ActionKind string

const (
	ActionInspectArtifact ActionKind = "inspect_artifact"
	ActionInspectPerson   ActionKind = "inspect_person"
	ActionBlock           ActionKind = "block"
	ActionAttack          ActionKind = "attack"
	ActionSwap            ActionKind = "swap"
)

// Action は追記専用のスキル使用ログ。作成後に更新しない
type Action struct {
	gorm.Model
	GameID           uint       `gorm:"uniqueIndex:idx_action_game_seq;not null"`
	Seq              uint       `gorm:"uniqueIndex:idx_action_game_seq;not null"`
	Round            int        `gorm:"index;not null"`
	ActorID          uint       `gorm:"index;not null"`
	Kind             ActionKind `gorm:"size:32;not null"`
	TargetPlayerID   *uint
	TargetArtifactID *uint
	SecondArtifactID *uint
	Blocked          bool `gorm:"not null;default:false"` // 封鎖中に使われたスキル
}

// Vote は獣首への投票。1ラウンド1人1票
type Vote struct {
	gorm.Model
	GameID     uint `gorm:"uniqueIndex:idx_vote_voter;not null"`
	Round      int  `gorm:"uniqueIndex:idx_vote_voter;not null"`
	VoterID    uint `gorm:"uniqueIndex:idx_vote_voter;not null"`
	ArtifactID uint `gorm:"index;not null"`
}

// IdentificationVote は最終ラウンドの鑑人投票。対象役職ごとに1人1票
type IdentificationVote struct {
	gorm.Model
	GameID     uint   `gorm:"uniqueIndex:idx_identification_voter;not null"`
	VoterID    uint   `gorm:"uniqueIndex:idx_identification_voter;not null"`
	TargetRole string `gorm:"uniqueIndex:idx_identification_voter;size:16;not null"`
	AccusedID  uint   `gorm:"not null"`
}
