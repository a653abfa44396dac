// Package condor はルームの状態遷移、投票集計、スキル解決、鑑人判定を行うゲームエンジン。
// 状態はすべてRepositoryに置き、エンジン自身はルームの状態を保持しない。
package condor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"condorserver/models"

	"go.uber.org/zap"
)

// Engine は全ルーム共通のゲームエンジン。ルーム同士は干渉しないので並行に呼んでよい
type Engine struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	rules     Rules

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option はNewEngineの任意設定
type Option func(*Engine)

// WithRand は獣首の配置やルーム番号に使う乱数を固定する
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithClock は現在時刻の取得を差し替える
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine はエンジンを生成する。publisherは配信先で、プロセス全体の状態から取り出さず必ず渡す
func NewEngine(repo Repository, publisher Publisher, logger *zap.Logger, rules Rules, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		rules:     rules,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Rules は現在のルール値
func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) shuffle(labels []string) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
}

// publish はコミット後に呼ぶ。失敗してもログに残すだけで状態は戻さない
func (e *Engine) publish(ctx context.Context, events ...Event) {
	if e.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.logger.Error("Failed to publish event",
				zap.String("event", string(ev.Name)),
				zap.Uint("gameID", ev.GameID),
				zap.Error(err),
			)
		}
	}
}

// roomUpdate はゲームとアクティブなプレイヤーのスナップショットを作る
func roomUpdate(ctx context.Context, repo Repository, gameID uint) (Event, error) {
	game, err := repo.GetGame(ctx, gameID)
	if err != nil {
		return Event{}, storageError("get game", err)
	}
	players, err := repo.ListActivePlayers(ctx, gameID)
	if err != nil {
		return Event{}, storageError("list players", err)
	}
	return Event{
		Name:    EventRoomUpdate,
		GameID:  gameID,
		Payload: RoomUpdatePayload{Game: gameView(game), Players: playerViews(players)},
	}, nil
}

// Snapshot は現在のルームの状態を返す
func (e *Engine) Snapshot(ctx context.Context, gameID uint) (RoomUpdatePayload, error) {
	ev, err := roomUpdate(ctx, e.repo, gameID)
	if err != nil {
		return RoomUpdatePayload{}, err
	}
	return ev.Payload.(RoomUpdatePayload), nil
}

// PlayerForUser はゲーム内でuserIDに対応するアクティブなプレイヤーを探す
func (e *Engine) PlayerForUser(ctx context.Context, gameID, userID uint) (*models.Player, error) {
	players, err := e.repo.ListActivePlayers(ctx, gameID)
	if err != nil {
		return nil, storageError("list players", err)
	}
	for i := range players {
		if players[i].UserID == userID {
			return &players[i], nil
		}
	}
	return nil, newError(KindNotFound, "user %d is not in game %d", userID, gameID)
}

// findActive はアクティブなプレイヤーの中からidを探す
func findActive(players []models.Player, id uint) (*models.Player, bool) {
	for i := range players {
		if players[i].ID == id {
			return &players[i], true
		}
	}
	return nil, false
}

// currentRound は現在のラウンドを取得し、呼び出し側が想定しているラウンドと一致するか確かめる
func currentRound(ctx context.Context, repo Repository, gameID uint, expected int) (*models.Round, error) {
	round, err := repo.GetCurrentRound(ctx, gameID)
	if err != nil {
		return nil, storageError("get current round", err)
	}
	if round == nil {
		return nil, newError(KindRoundMismatch, "game %d has no active round", gameID)
	}
	if expected != 0 && round.Round != expected {
		return nil, newError(KindRoundMismatch, "round %d requested, current round is %d", expected, round.Round)
	}
	return round, nil
}

func (e *Engine) deadline(phase models.Phase) *time.Time {
	d := e.rules.phaseDuration(phase)
	if d <= 0 {
		return nil
	}
	t := e.now().Add(d)
	return &t
}

// ArtifactView は全員に見せる獣首の情報。真贋と封鎖は伏せる
type ArtifactView struct {
	ID     uint   `json:"id"`
	Zodiac string `json:"zodiac"`
	Votes  int    `json:"votes"`
	Rank   *int   `json:"rank,omitempty"`
}

// RoundView は現在のラウンドとその獣首
type RoundView struct {
	Round     int            `json:"round"`
	Phase     models.Phase   `json:"phase"`
	EndsAt    *time.Time     `json:"endsAt,omitempty"`
	Artifacts []ArtifactView `json:"artifacts"`
}

// CurrentRound は進行中のラウンド。ゲーム開始前や終了後はnil
func (e *Engine) CurrentRound(ctx context.Context, gameID uint) (*RoundView, error) {
	round, err := e.repo.GetCurrentRound(ctx, gameID)
	if err != nil {
		return nil, storageError("get current round", err)
	}
	if round == nil {
		return nil, nil
	}
	artifacts, err := e.repo.ListArtifacts(ctx, gameID, round.Round)
	if err != nil {
		return nil, storageError("list artifacts", err)
	}
	view := &RoundView{Round: round.Round, Phase: round.Phase, EndsAt: round.PhaseEndsAt, Artifacts: make([]ArtifactView, 0, len(artifacts))}
	for _, a := range artifacts {
		view.Artifacts = append(view.Artifacts, ArtifactView{ID: a.ID, Zodiac: a.Zodiac, Votes: a.Votes, Rank: a.VoteRank})
	}
	return view, nil
}
