package condor

import (
	"context"
	"errors"
	"time"

	"condorserver/models"
)

// リポジトリ実装が返す共通エラー
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("conditional update lost")
	ErrDuplicate = errors.New("duplicate record")
)

// PlayerUpdate はUpdatePlayerで書き換えるフィールド。nilのフィールドは変更しない
type PlayerUpdate struct {
	Role         *string
	Color        *string
	IsHost       *bool
	IsReady      *bool
	IsOnline     *bool
	LeftAt       *time.Time
	BlockedRound *int
}

// ActionFilter はListActionsの条件。ゼロ値の項目は絞り込まない
type ActionFilter struct {
	GameID  uint
	Round   int
	ActorID uint
	Kind    models.ActionKind
}

// Repository はゲームエンジンが必要とする永続化の操作。
// 条件付き更新は期待値が一致しなければErrConflictを返す
type Repository interface {
	// Transaction はfnを1つのトランザクションで実行する。fnがエラーを返すと何も書き込まれない
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	CreateGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, id uint) (*models.Game, error)
	GetGameByRoomName(ctx context.Context, roomName string) (*models.Game, error)
	// LockGame はトランザクション終了までゲーム行への他の書き込みを待たせる
	LockGame(ctx context.Context, id uint) (*models.Game, error)
	UpdateGameStatus(ctx context.Context, id uint, expected, next models.GameStatus) error
	UpdateGameScore(ctx context.Context, id uint, expected, next int) error
	UpdateGameHost(ctx context.Context, id uint, hostUserID uint) error
	UpdateGamePlayerCount(ctx context.Context, id uint, count int) error
	UpdateGameWinner(ctx context.Context, id uint, winner string) error

	InsertPlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, id uint) (*models.Player, error)
	// ListActivePlayers はLeftAtがnilのプレイヤーをID順に返す
	ListActivePlayers(ctx context.Context, gameID uint) ([]models.Player, error)
	UpdatePlayer(ctx context.Context, id uint, update PlayerUpdate) error

	// GetCurrentRound は終了していない最新のラウンド。なければnil, nil
	GetCurrentRound(ctx context.Context, gameID uint) (*models.Round, error)
	InsertRound(ctx context.Context, round *models.Round) error
	UpdateRoundPhase(ctx context.Context, id uint, expected, next models.Phase, endsAt *time.Time) error
	// ListExpiredRounds は期限を過ぎた未終了ラウンド
	ListExpiredRounds(ctx context.Context, now time.Time) ([]models.Round, error)

	InsertArtifacts(ctx context.Context, artifacts []models.Artifact) error
	GetArtifact(ctx context.Context, id uint) (*models.Artifact, error)
	// ListArtifacts はround=0ならゲームの全ラウンド分をID順に返す
	ListArtifacts(ctx context.Context, gameID uint, round int) ([]models.Artifact, error)
	UpdateArtifactTally(ctx context.Context, id uint, votes int, rank *int) error
	UpdateArtifactFlags(ctx context.Context, id uint, genuine, blocked, swapped bool) error

	// InsertVote は同じ(game, round, voter)があればErrDuplicate
	InsertVote(ctx context.Context, vote *models.Vote) error
	ListVotes(ctx context.Context, gameID uint, round int) ([]models.Vote, error)

	// AppendAction はゲームごとのカウンタを原子的に進めてaction.Seqに入れてから保存する
	AppendAction(ctx context.Context, action *models.Action) error
	ListActions(ctx context.Context, filter ActionFilter) ([]models.Action, error)

	// InsertIdentificationVotes は同じ(game, voter, target role)があればErrDuplicate
	InsertIdentificationVotes(ctx context.Context, votes []models.IdentificationVote) error
	ListIdentificationVotes(ctx context.Context, gameID uint) ([]models.IdentificationVote, error)

	// DeleteFinishedGamesBefore は保持期間を過ぎた終了済みゲームを消す
	DeleteFinishedGamesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
