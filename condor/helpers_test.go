package condor_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"condorserver/condor"
	"condorserver/condor/database"
	rootdb "condorserver/database"
	"condorserver/models"

	"go.uber.org/zap/zaptest"
)

var sixRoles = []string{
	condor.RoleXuYuan, condor.RoleFangZhen, condor.RoleHuangYanyan,
	condor.RoleKidoKana, condor.RoleLaoChaofeng, condor.RoleYaoBuran,
}

var eightRoles = append(append([]string(nil), sixRoles...), condor.RoleJiYunfu, condor.RoleZhengGuoqu)

// recorder はPublishされたイベントを記録する
type recorder struct {
	mu     sync.Mutex
	events []condor.Event
}

func (r *recorder) Publish(_ context.Context, ev condor.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count(name condor.EventName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func (r *recorder) last(name condor.EventName) (condor.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Name == name {
			return r.events[i], true
		}
	}
	return condor.Event{}, false
}

// fakeClock はテストから進められる時計
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine *condor.Engine
	repo   condor.Repository
	events *recorder
	clock  *fakeClock
}

func newHarness(t *testing.T, tweak ...func(*condor.Rules)) *harness {
	t.Helper()
	return newHarnessOn(t, database.NewMemory(), tweak...)
}

// newGormHarness はSQLite上のgormリポジトリでエンジンを組み立てる
func newGormHarness(t *testing.T, tweak ...func(*condor.Rules)) *harness {
	t.Helper()
	db, err := rootdb.InitSQLite(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return newHarnessOn(t, database.NewGorm(db), tweak...)
}

// backends は同じエンジンのテストを両方のリポジトリで回す
func backends() map[string]func(*testing.T, ...func(*condor.Rules)) *harness {
	return map[string]func(*testing.T, ...func(*condor.Rules)) *harness{
		"memory": newHarness,
		"gorm":   newGormHarness,
	}
}

func newHarnessOn(t *testing.T, repo condor.Repository, tweak ...func(*condor.Rules)) *harness {
	t.Helper()
	rules := condor.DefaultRules()
	for _, fn := range tweak {
		fn(&rules)
	}
	h := &harness{
		repo:   repo,
		events: &recorder{},
		clock:  &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.engine = condor.NewEngine(h.repo, h.events, zaptest.NewLogger(t), rules,
		condor.WithRand(rand.New(rand.NewSource(42))),
		condor.WithClock(h.clock.Now),
	)
	return h
}

// seat はn人が参加した待機中のルームを作る。ユーザーIDは1..n
func (h *harness) seat(t *testing.T, n int) (uint, []*models.Player) {
	t.Helper()
	ctx := context.Background()
	game, host, err := h.engine.CreateRoom(ctx, 1, "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	players := []*models.Player{host}
	for i := 2; i <= n; i++ {
		p, err := h.engine.JoinRoom(ctx, game.RoomName, uint(i), "guest")
		if err != nil {
			t.Fatalf("JoinRoom(%d): %v", i, err)
		}
		players = append(players, p)
	}
	return game.ID, players
}

// choose は役職選択を始め、i番目のプレイヤーにroles[i]と色を選ばせて準備完了にする
func (h *harness) choose(t *testing.T, gameID uint, players []*models.Player, roles []string) {
	t.Helper()
	ctx := context.Background()
	if err := h.engine.StartSelection(ctx, gameID); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}
	for i, p := range players {
		if err := h.engine.SelectRole(ctx, p.ID, roles[i]); err != nil {
			t.Fatalf("SelectRole(%s): %v", roles[i], err)
		}
		if err := h.engine.SelectColor(ctx, p.ID, condor.Colors[i]); err != nil {
			t.Fatalf("SelectColor: %v", err)
		}
		if err := h.engine.SetReady(ctx, p.ID); err != nil {
			t.Fatalf("SetReady: %v", err)
		}
	}
}

// start は役職を割り当ててゲームを開始する。戻り値は役職名→プレイヤー
func (h *harness) start(t *testing.T, roles []string) (uint, map[string]*models.Player) {
	t.Helper()
	gameID, players := h.seat(t, len(roles))
	h.choose(t, gameID, players, roles)
	if _, err := h.engine.StartGame(context.Background(), gameID); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	byRole := make(map[string]*models.Player, len(roles))
	for i, p := range players {
		byRole[roles[i]] = p
	}
	return gameID, byRole
}

// toVoting はラウンドをaction→discussion→votingと進める
func (h *harness) toVoting(t *testing.T, gameID uint, round int) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.engine.AdvancePhase(ctx, gameID, round, models.PhaseAction); err != nil {
		t.Fatalf("AdvancePhase(action): %v", err)
	}
	if _, err := h.engine.AdvancePhase(ctx, gameID, round, models.PhaseDiscussion); err != nil {
		t.Fatalf("AdvancePhase(discussion): %v", err)
	}
}

// finishRound は投票なしでラウンドを締める
func (h *harness) finishRound(t *testing.T, gameID uint, round int) *condor.VotingOutcome {
	t.Helper()
	h.toVoting(t, gameID, round)
	outcome, err := h.engine.CompleteVotingPhase(context.Background(), gameID, round)
	if err != nil {
		t.Fatalf("CompleteVotingPhase(%d): %v", round, err)
	}
	return outcome
}

// toIdentification は3ラウンドを終えて鑑人フェーズに入る
func (h *harness) toIdentification(t *testing.T, gameID uint) {
	t.Helper()
	for round := 1; round <= condor.TotalRounds; round++ {
		h.finishRound(t, gameID, round)
	}
}

func (h *harness) artifacts(t *testing.T, gameID uint, round int) []models.Artifact {
	t.Helper()
	artifacts, err := h.repo.ListArtifacts(context.Background(), gameID, round)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	return artifacts
}

func (h *harness) game(t *testing.T, gameID uint) *models.Game {
	t.Helper()
	game, err := h.repo.GetGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	return game
}

func wantKind(t *testing.T, err error, kind condor.Kind) {
	t.Helper()
	if got := condor.KindOf(err); got != kind {
		t.Fatalf("error kind = %q (%v), want %q", got, err, kind)
	}
}
