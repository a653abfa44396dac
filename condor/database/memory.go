package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"condorserver/condor"
	"condorserver/models"
)

// Memory はプロセス内にすべてを持つリポジトリ。テストと開発用。
// トランザクション中は全体を1つのロックで直列にし、失敗したら開始前の状態に戻す
type Memory struct {
	mu    *sync.Mutex
	state **memData
	inTx  bool
}

type memData struct {
	nextID          uint
	games           map[uint]models.Game
	players         map[uint]models.Player
	rounds          map[uint]models.Round
	artifacts       map[uint]models.Artifact
	votes           []models.Vote
	actions         []models.Action
	identifications []models.IdentificationVote
}

// NewMemory は空のリポジトリを作る
func NewMemory() *Memory {
	d := &memData{
		games:     make(map[uint]models.Game),
		players:   make(map[uint]models.Player),
		rounds:    make(map[uint]models.Round),
		artifacts: make(map[uint]models.Artifact),
	}
	return &Memory{mu: &sync.Mutex{}, state: &d}
}

var _ condor.Repository = (*Memory)(nil)

func (d *memData) clone() *memData {
	c := &memData{
		nextID:          d.nextID,
		games:           make(map[uint]models.Game, len(d.games)),
		players:         make(map[uint]models.Player, len(d.players)),
		rounds:          make(map[uint]models.Round, len(d.rounds)),
		artifacts:       make(map[uint]models.Artifact, len(d.artifacts)),
		votes:           append([]models.Vote(nil), d.votes...),
		actions:         append([]models.Action(nil), d.actions...),
		identifications: append([]models.IdentificationVote(nil), d.identifications...),
	}
	for k, v := range d.games {
		c.games[k] = v
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.rounds {
		c.rounds[k] = v
	}
	for k, v := range d.artifacts {
		c.artifacts[k] = v
	}
	return c
}

func (d *memData) newModel() (uint, time.Time) {
	d.nextID++
	return d.nextID, time.Now()
}

// lock はトランザクション外の呼び出しだけロックを取る
func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) data() *memData {
	return *m.state
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx condor.Repository) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data().clone()
	tx := &Memory{mu: m.mu, state: m.state, inTx: true}
	if err := fn(tx); err != nil {
		*m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) CreateGame(ctx context.Context, game *models.Game) error {
	defer m.lock()()
	d := m.data()
	for _, g := range d.games {
		if g.RoomName == game.RoomName {
			return condor.ErrDuplicate
		}
	}
	game.ID, game.CreatedAt = d.newModel()
	game.UpdatedAt = game.CreatedAt
	d.games[game.ID] = *game
	return nil
}

func (m *Memory) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	defer m.lock()()
	g, ok := m.data().games[id]
	if !ok {
		return nil, condor.ErrNotFound
	}
	return &g, nil
}

func (m *Memory) GetGameByRoomName(ctx context.Context, roomName string) (*models.Game, error) {
	defer m.lock()()
	for _, g := range m.data().games {
		if g.RoomName == roomName {
			g := g
			return &g, nil
		}
	}
	return nil, condor.ErrNotFound
}

// LockGame はトランザクション全体がロックを持っているので読むだけ
func (m *Memory) LockGame(ctx context.Context, id uint) (*models.Game, error) {
	return m.GetGame(ctx, id)
}

func (m *Memory) updateGame(id uint, fn func(g *models.Game) error) error {
	defer m.lock()()
	d := m.data()
	g, ok := d.games[id]
	if !ok {
		return condor.ErrNotFound
	}
	if err := fn(&g); err != nil {
		return err
	}
	g.UpdatedAt = time.Now()
	d.games[id] = g
	return nil
}

func (m *Memory) UpdateGameStatus(ctx context.Context, id uint, expected, next models.GameStatus) error {
	return m.updateGame(id, func(g *models.Game) error {
		if g.Status != expected {
			return condor.ErrConflict
		}
		g.Status = next
		return nil
	})
}

func (m *Memory) UpdateGameScore(ctx context.Context, id uint, expected, next int) error {
	return m.updateGame(id, func(g *models.Game) error {
		if g.Score != expected {
			return condor.ErrConflict
		}
		g.Score = next
		return nil
	})
}

func (m *Memory) UpdateGameHost(ctx context.Context, id uint, hostUserID uint) error {
	return m.updateGame(id, func(g *models.Game) error {
		g.HostUserID = hostUserID
		return nil
	})
}

func (m *Memory) UpdateGamePlayerCount(ctx context.Context, id uint, count int) error {
	return m.updateGame(id, func(g *models.Game) error {
		g.PlayerCount = count
		return nil
	})
}

func (m *Memory) UpdateGameWinner(ctx context.Context, id uint, winner string) error {
	return m.updateGame(id, func(g *models.Game) error {
		if g.Winner != "" {
			return condor.ErrConflict
		}
		g.Winner = winner
		return nil
	})
}

func (m *Memory) InsertPlayer(ctx context.Context, player *models.Player) error {
	defer m.lock()()
	d := m.data()
	player.ID, player.CreatedAt = d.newModel()
	player.UpdatedAt = player.CreatedAt
	d.players[player.ID] = *player
	return nil
}

func (m *Memory) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	defer m.lock()()
	p, ok := m.data().players[id]
	if !ok {
		return nil, condor.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListActivePlayers(ctx context.Context, gameID uint) ([]models.Player, error) {
	defer m.lock()()
	var out []models.Player
	for _, p := range m.data().players {
		if p.GameID == gameID && p.LeftAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdatePlayer(ctx context.Context, id uint, u condor.PlayerUpdate) error {
	defer m.lock()()
	d := m.data()
	p, ok := d.players[id]
	if !ok {
		return condor.ErrNotFound
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.Color != nil {
		p.Color = *u.Color
	}
	if u.IsHost != nil {
		p.IsHost = *u.IsHost
	}
	if u.IsReady != nil {
		p.IsReady = *u.IsReady
	}
	if u.IsOnline != nil {
		p.IsOnline = *u.IsOnline
	}
	if u.LeftAt != nil {
		t := *u.LeftAt
		p.LeftAt = &t
	}
	if u.BlockedRound != nil {
		p.BlockedRound = *u.BlockedRound
	}
	p.UpdatedAt = time.Now()
	d.players[id] = p
	return nil
}

func (m *Memory) GetCurrentRound(ctx context.Context, gameID uint) (*models.Round, error) {
	defer m.lock()()
	var current *models.Round
	for _, r := range m.data().rounds {
		if r.GameID != gameID || r.Phase == models.PhaseFinished {
			continue
		}
		if current == nil || r.Round > current.Round {
			r := r
			current = &r
		}
	}
	return current, nil
}

func (m *Memory) InsertRound(ctx context.Context, round *models.Round) error {
	defer m.lock()()
	d := m.data()
	for _, r := range d.rounds {
		if r.GameID == round.GameID && r.Round == round.Round {
			return condor.ErrDuplicate
		}
	}
	round.ID, round.CreatedAt = d.newModel()
	round.UpdatedAt = round.CreatedAt
	d.rounds[round.ID] = *round
	return nil
}

func (m *Memory) UpdateRoundPhase(ctx context.Context, id uint, expected, next models.Phase, endsAt *time.Time) error {
	defer m.lock()()
	d := m.data()
	r, ok := d.rounds[id]
	if !ok {
		return condor.ErrNotFound
	}
	if r.Phase != expected {
		return condor.ErrConflict
	}
	r.Phase = next
	r.PhaseEndsAt = endsAt
	r.UpdatedAt = time.Now()
	d.rounds[id] = r
	return nil
}

func (m *Memory) ListExpiredRounds(ctx context.Context, now time.Time) ([]models.Round, error) {
	defer m.lock()()
	var out []models.Round
	for _, r := range m.data().rounds {
		if r.Phase == models.PhaseFinished || r.PhaseEndsAt == nil {
			continue
		}
		if r.PhaseEndsAt.Before(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertArtifacts(ctx context.Context, artifacts []models.Artifact) error {
	defer m.lock()()
	d := m.data()
	for i := range artifacts {
		for _, a := range d.artifacts {
			if a.GameID == artifacts[i].GameID && a.Round == artifacts[i].Round && a.Zodiac == artifacts[i].Zodiac {
				return condor.ErrDuplicate
			}
		}
		artifacts[i].ID, artifacts[i].CreatedAt = d.newModel()
		artifacts[i].UpdatedAt = artifacts[i].CreatedAt
		d.artifacts[artifacts[i].ID] = artifacts[i]
	}
	return nil
}

func (m *Memory) GetArtifact(ctx context.Context, id uint) (*models.Artifact, error) {
	defer m.lock()()
	a, ok := m.data().artifacts[id]
	if !ok {
		return nil, condor.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListArtifacts(ctx context.Context, gameID uint, round int) ([]models.Artifact, error) {
	defer m.lock()()
	var out []models.Artifact
	for _, a := range m.data().artifacts {
		if a.GameID == gameID && (round == 0 || a.Round == round) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateArtifactTally(ctx context.Context, id uint, votes int, rank *int) error {
	defer m.lock()()
	d := m.data()
	a, ok := d.artifacts[id]
	if !ok {
		return condor.ErrNotFound
	}
	a.Votes = votes
	a.VoteRank = nil
	if rank != nil {
		r := *rank
		a.VoteRank = &r
	}
	a.UpdatedAt = time.Now()
	d.artifacts[id] = a
	return nil
}

func (m *Memory) UpdateArtifactFlags(ctx context.Context, id uint, genuine, blocked, swapped bool) error {
	defer m.lock()()
	d := m.data()
	a, ok := d.artifacts[id]
	if !ok {
		return condor.ErrNotFound
	}
	a.IsGenuine, a.IsBlocked, a.IsSwapped = genuine, blocked, swapped
	a.UpdatedAt = time.Now()
	d.artifacts[id] = a
	return nil
}

func (m *Memory) InsertVote(ctx context.Context, vote *models.Vote) error {
	defer m.lock()()
	d := m.data()
	for _, v := range d.votes {
		if v.GameID == vote.GameID && v.Round == vote.Round && v.VoterID == vote.VoterID {
			return condor.ErrDuplicate
		}
	}
	vote.ID, vote.CreatedAt = d.newModel()
	vote.UpdatedAt = vote.CreatedAt
	d.votes = append(d.votes, *vote)
	return nil
}

func (m *Memory) ListVotes(ctx context.Context, gameID uint, round int) ([]models.Vote, error) {
	defer m.lock()()
	var out []models.Vote
	for _, v := range m.data().votes {
		if v.GameID == gameID && v.Round == round {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) AppendAction(ctx context.Context, action *models.Action) error {
	defer m.lock()()
	d := m.data()
	g, ok := d.games[action.GameID]
	if !ok {
		return condor.ErrNotFound
	}
	g.ActionSeq++
	d.games[g.ID] = g

	action.Seq = g.ActionSeq
	action.ID, action.CreatedAt = d.newModel()
	action.UpdatedAt = action.CreatedAt
	d.actions = append(d.actions, *action)
	return nil
}

func (m *Memory) ListActions(ctx context.Context, f condor.ActionFilter) ([]models.Action, error) {
	defer m.lock()()
	var out []models.Action
	for _, a := range m.data().actions {
		if a.GameID != f.GameID {
			continue
		}
		if (f.Round != 0 && a.Round != f.Round) || (f.ActorID != 0 && a.ActorID != f.ActorID) || (f.Kind != "" && a.Kind != f.Kind) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *Memory) InsertIdentificationVotes(ctx context.Context, votes []models.IdentificationVote) error {
	defer m.lock()()
	d := m.data()
	seen := make(map[[2]interface{}]bool)
	for _, v := range votes {
		key := [2]interface{}{v.VoterID, v.TargetRole}
		if seen[key] {
			return condor.ErrDuplicate
		}
		seen[key] = true
		for _, existing := range d.identifications {
			if existing.GameID == v.GameID && existing.VoterID == v.VoterID && existing.TargetRole == v.TargetRole {
				return condor.ErrDuplicate
			}
		}
	}
	for i := range votes {
		votes[i].ID, votes[i].CreatedAt = d.newModel()
		votes[i].UpdatedAt = votes[i].CreatedAt
		d.identifications = append(d.identifications, votes[i])
	}
	return nil
}

func (m *Memory) ListIdentificationVotes(ctx context.Context, gameID uint) ([]models.IdentificationVote, error) {
	defer m.lock()()
	var out []models.IdentificationVote
	for _, v := range m.data().identifications {
		if v.GameID == gameID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) DeleteFinishedGamesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	defer m.lock()()
	d := m.data()
	expired := make(map[uint]bool)
	for id, g := range d.games {
		if g.Status == models.StatusFinished && g.UpdatedAt.Before(cutoff) {
			expired[id] = true
			delete(d.games, id)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	for id, p := range d.players {
		if expired[p.GameID] {
			delete(d.players, id)
		}
	}
	for id, r := range d.rounds {
		if expired[r.GameID] {
			delete(d.rounds, id)
		}
	}
	for id, a := range d.artifacts {
		if expired[a.GameID] {
			delete(d.artifacts, id)
		}
	}
	d.votes = filterByGame(d.votes, expired, func(v models.Vote) uint { return v.GameID })
	d.actions = filterByGame(d.actions, expired, func(a models.Action) uint { return a.GameID })
	d.identifications = filterByGame(d.identifications, expired, func(v models.IdentificationVote) uint { return v.GameID })
	return int64(len(expired)), nil
}

func filterByGame[T any](rows []T, expired map[uint]bool, gameID func(T) uint) []T {
	out := rows[:0]
	for _, r := range rows {
		if !expired[gameID(r)] {
			out = append(out, r)
		}
	}
	return out
}
