package condor

import (
	"context"
	"errors"
	"fmt"

	"condorserver/models"

	"go.uber.org/zap"
)

const roomNameAttempts = 8

// CreateRoom は新しいルームを作り、作成者をホストとして参加させる
func (e *Engine) CreateRoom(ctx context.Context, hostUserID uint, nickname string) (*models.Game, *models.Player, error) {
	var game *models.Game
	var host *models.Player

	// ルーム番号が衝突したら別の番号でやり直す
	for i := 0; i < roomNameAttempts; i++ {
		g := &models.Game{
			RoomName:    fmt.Sprintf("%05d", e.intn(100000)),
			HostUserID:  hostUserID,
			Status:      models.StatusWaiting,
			PlayerCount: 1,
		}
		p := &models.Player{UserID: hostUserID, Nickname: nickname, IsHost: true}
		err := e.repo.Transaction(ctx, func(tx Repository) error {
			if err := tx.CreateGame(ctx, g); err != nil {
				return err
			}
			p.GameID = g.ID
			return tx.InsertPlayer(ctx, p)
		})
		if errors.Is(err, ErrDuplicate) {
			e.logger.Info("Room name collision, retrying", zap.String("roomName", g.RoomName))
			continue
		}
		if err != nil {
			return nil, nil, storageError("create room", err)
		}
		game, host = g, p
		break
	}
	if game == nil {
		return nil, nil, fmt.Errorf("create room: no free room name after %d attempts", roomNameAttempts)
	}

	e.logger.Info("Room created", zap.Uint("gameID", game.ID), zap.String("roomName", game.RoomName), zap.Uint("hostUserID", hostUserID))
	e.publishRoomUpdate(ctx, game.ID)
	return game, host, nil
}

// JoinRoom は待機中のルームに参加する。既に参加しているユーザーはそのまま返す
func (e *Engine) JoinRoom(ctx context.Context, roomName string, userID uint, nickname string) (*models.Player, error) {
	var joined *models.Player
	changed := false
	var gameID uint

	err := e.repo.Transaction(ctx, func(tx Repository) error {
		g, err := tx.GetGameByRoomName(ctx, roomName)
		if err != nil {
			return storageError("get game", err)
		}
		game, err := tx.LockGame(ctx, g.ID)
		if err != nil {
			return storageError("lock game", err)
		}
		gameID = game.ID

		players, err := tx.ListActivePlayers(ctx, game.ID)
		if err != nil {
			return storageError("list players", err)
		}
		for i := range players {
			if players[i].UserID == userID {
				joined = &players[i]
				return nil
			}
		}

		if game.Status != models.StatusWaiting {
			return newError(KindInvalidPhaseTransition, "room %s is %s", roomName, game.Status)
		}
		if len(players) >= e.rules.MaxPlayers {
			return newError(KindRoomFull, "room %s already has %d players", roomName, len(players))
		}

		p := &models.Player{GameID: game.ID, UserID: userID, Nickname: nickname}
		if err := tx.InsertPlayer(ctx, p); err != nil {
			return storageError("insert player", err)
		}
		if err := tx.UpdateGamePlayerCount(ctx, game.ID, len(players)+1); err != nil {
			return storageError("update player count", err)
		}
		joined = p
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.logger.Info("Player joined", zap.Uint("gameID", gameID), zap.Uint("userID", userID))
		e.publishRoomUpdate(ctx, gameID)
	}
	return joined, nil
}

// StartSelection は待機中のルームを役職選択に進める
func (e *Engine) StartSelection(ctx context.Context, gameID uint) error {
	var playerCount int
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		game, err := tx.LockGame(ctx, gameID)
		if err != nil {
			return storageError("lock game", err)
		}
		if game.Status != models.StatusWaiting {
			return newError(KindInvalidPhaseTransition, "cannot start selection from %s", game.Status)
		}
		players, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}
		playerCount = len(players)
		if playerCount < e.rules.MinPlayers || playerCount > e.rules.MaxPlayers {
			return newError(KindInsufficientPlayers, "%d players, need %d-%d", playerCount, e.rules.MinPlayers, e.rules.MaxPlayers)
		}
		if err := tx.UpdateGameStatus(ctx, gameID, models.StatusWaiting, models.StatusSelecting); err != nil {
			return storageError("update game status", err)
		}
		return storageError("update player count", tx.UpdateGamePlayerCount(ctx, gameID, playerCount))
	})
	if err != nil {
		return err
	}

	e.logger.Info("Selection started", zap.Uint("gameID", gameID), zap.Int("players", playerCount))

	var roleNames []string
	for _, r := range RolesForPlayerCount(playerCount) {
		roleNames = append(roleNames, r.Name)
	}
	e.publish(ctx, Event{
		Name:    EventSelectionStarted,
		GameID:  gameID,
		Payload: SelectionStartedPayload{Roles: roleNames, Colors: Colors},
	})
	e.publishRoomUpdate(ctx, gameID)
	return nil
}

// SelectRole は役職を選ぶ。重複の確認はLockSelectionsで行う
func (e *Engine) SelectRole(ctx context.Context, playerID uint, role string) error {
	return e.updateSelection(ctx, playerID, func(game *models.Game) (PlayerUpdate, error) {
		for _, r := range RolesForPlayerCount(game.PlayerCount) {
			if r.Name == role {
				return PlayerUpdate{Role: &role}, nil
			}
		}
		return PlayerUpdate{}, newError(KindInvalidSelection, "role %q is not available with %d players", role, game.PlayerCount)
	})
}

// SelectColor は色を選ぶ
func (e *Engine) SelectColor(ctx context.Context, playerID uint, color string) error {
	return e.updateSelection(ctx, playerID, func(*models.Game) (PlayerUpdate, error) {
		if !validColor(color) {
			return PlayerUpdate{}, newError(KindInvalidSelection, "unknown color %q", color)
		}
		return PlayerUpdate{Color: &color}, nil
	})
}

func (e *Engine) updateSelection(ctx context.Context, playerID uint, build func(*models.Game) (PlayerUpdate, error)) error {
	var gameID uint
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		player, game, err := selectingPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		gameID = game.ID
		if player.IsReady {
			return newError(KindInvalidSelection, "player %d is locked in, unlock first", playerID)
		}
		update, err := build(game)
		if err != nil {
			return err
		}
		return storageError("update player", tx.UpdatePlayer(ctx, playerID, update))
	})
	if err != nil {
		return err
	}
	e.publishRoomUpdate(ctx, gameID)
	return nil
}

// SetReady は役職と色を選び終えたプレイヤーを準備完了にする
func (e *Engine) SetReady(ctx context.Context, playerID uint) error {
	var gameID uint
	changed := false
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		player, game, err := selectingPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		gameID = game.ID
		if player.IsReady {
			return nil
		}
		if player.Role == "" || player.Color == "" {
			return newError(KindInvalidSelection, "player %d must choose a role and a color", playerID)
		}
		ready := true
		changed = true
		return storageError("update player", tx.UpdatePlayer(ctx, playerID, PlayerUpdate{IsReady: &ready}))
	})
	if err != nil {
		return err
	}
	if changed {
		e.publishRoomUpdate(ctx, gameID)
	}
	return nil
}

// UnlockSelection は準備完了を取り消し、役職と色を空に戻す
func (e *Engine) UnlockSelection(ctx context.Context, playerID uint) error {
	var gameID uint
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		player, game, err := selectingPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		gameID = game.ID
		if !player.IsReady {
			return newError(KindNotReady, "player %d is not locked in", playerID)
		}
		empty := ""
		notReady := false
		return storageError("update player", tx.UpdatePlayer(ctx, playerID, PlayerUpdate{
			Role:    &empty,
			Color:   &empty,
			IsReady: &notReady,
		}))
	})
	if err != nil {
		return err
	}

	e.logger.Info("Selection unlocked", zap.Uint("gameID", gameID), zap.Uint("playerID", playerID))
	e.publish(ctx, Event{
		Name:    EventPlayerUnlocked,
		GameID:  gameID,
		Payload: PlayerUnlockedPayload{PlayerID: playerID, IsReady: false},
	})
	e.publishRoomUpdate(ctx, gameID)
	return nil
}

// selectingPlayer は役職選択中のゲームに属するアクティブなプレイヤーを取得する
func selectingPlayer(ctx context.Context, tx Repository, playerID uint) (*models.Player, *models.Game, error) {
	player, err := tx.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, storageError("get player", err)
	}
	if !player.Active() {
		return nil, nil, newError(KindNotFound, "player %d has left", playerID)
	}
	game, err := tx.GetGame(ctx, player.GameID)
	if err != nil {
		return nil, nil, storageError("get game", err)
	}
	if game.Status != models.StatusSelecting {
		return nil, nil, newError(KindInvalidPhaseTransition, "game %d is %s, not selecting", game.ID, game.Status)
	}
	return player, game, nil
}

// LockSelections は全員の準備と役職・色の重複を確かめるだけで、何も書き込まない
func (e *Engine) LockSelections(ctx context.Context, gameID uint) error {
	game, err := e.repo.GetGame(ctx, gameID)
	if err != nil {
		return storageError("get game", err)
	}
	players, err := e.repo.ListActivePlayers(ctx, gameID)
	if err != nil {
		return storageError("list players", err)
	}
	return checkSelections(game, players, e.rules)
}

// checkSelections は開始前の確認。人数と、その人数で選べる役職かどうかも見る
func checkSelections(game *models.Game, players []models.Player, rules Rules) error {
	if game.Status != models.StatusSelecting {
		return newError(KindInvalidPhaseTransition, "game %d is %s, not selecting", game.ID, game.Status)
	}
	if n := len(players); n < rules.MinPlayers || n > rules.MaxPlayers {
		return newError(KindInsufficientPlayers, "%d players, need %d-%d", n, rules.MinPlayers, rules.MaxPlayers)
	}

	notReady := 0
	for _, p := range players {
		if !p.IsReady {
			notReady++
		}
	}
	if notReady > 0 {
		err := newError(KindPlayersNotReady, "%d players are not ready", notReady)
		err.Count = notReady
		return err
	}

	if dup, ok := firstDuplicate(players, func(p models.Player) string { return p.Role }); ok {
		err := newError(KindConflictingSelection, "role %s chosen more than once", dup)
		err.Selection = SelectionRole
		return err
	}
	if dup, ok := firstDuplicate(players, func(p models.Player) string { return p.Color }); ok {
		err := newError(KindConflictingSelection, "color %s chosen more than once", dup)
		err.Selection = SelectionColor
		return err
	}

	offered := make(map[string]bool)
	for _, r := range RolesForPlayerCount(len(players)) {
		offered[r.Name] = true
	}
	for _, p := range players {
		if !offered[p.Role] {
			err := newError(KindInvalidSelection, "role %s is not available for %d players", p.Role, len(players))
			err.Selection = SelectionRole
			return err
		}
	}
	return nil
}

func firstDuplicate(players []models.Player, key func(models.Player) string) (string, bool) {
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		k := key(p)
		if seen[k] {
			return k, true
		}
		seen[k] = true
	}
	return "", false
}

// StartGame は選択を確定してゲームを開始し、第1ラウンドと獣首を作る
func (e *Engine) StartGame(ctx context.Context, gameID uint) (*models.Round, error) {
	var round *models.Round
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		game, err := tx.LockGame(ctx, gameID)
		if err != nil {
			return storageError("lock game", err)
		}
		players, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}
		if err := checkSelections(game, players, e.rules); err != nil {
			return err
		}
		if err := tx.UpdateGameStatus(ctx, gameID, models.StatusSelecting, models.StatusPlaying); err != nil {
			return storageError("update game status", err)
		}
		round, err = e.createRound(ctx, tx, gameID, 1)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Game started", zap.Uint("gameID", gameID))
	e.publishRoomUpdate(ctx, gameID)
	e.publish(ctx, roundAdvanced(gameID, round))
	return round, nil
}

// createRound はラウンドを作り、これまでのラウンドで使っていない干支から獣首を並べる
func (e *Engine) createRound(ctx context.Context, tx Repository, gameID uint, number int) (*models.Round, error) {
	existing, err := tx.ListArtifacts(ctx, gameID, 0)
	if err != nil {
		return nil, storageError("list artifacts", err)
	}
	used := make(map[string]bool, len(existing))
	for _, a := range existing {
		used[a.Zodiac] = true
	}
	var labels []string
	for _, z := range ZodiacOrder {
		if !used[z] {
			labels = append(labels, z)
		}
	}
	e.shuffle(labels)
	if len(labels) > e.rules.ArtifactsPerRound {
		labels = labels[:e.rules.ArtifactsPerRound]
	}

	round := &models.Round{
		GameID:      gameID,
		Round:       number,
		Phase:       models.PhaseAction,
		PhaseEndsAt: e.deadline(models.PhaseAction),
	}
	if err := tx.InsertRound(ctx, round); err != nil {
		return nil, storageError("insert round", err)
	}

	artifacts := make([]models.Artifact, 0, len(labels))
	for _, z := range labels {
		artifacts = append(artifacts, models.Artifact{
			GameID:    gameID,
			Round:     number,
			Zodiac:    z,
			IsGenuine: e.intn(2) == 0,
		})
	}
	if err := tx.InsertArtifacts(ctx, artifacts); err != nil {
		return nil, storageError("insert artifacts", err)
	}
	return round, nil
}

// nextPhase は時間で進むフェーズの遷移先。投票以降は専用の操作で進める
var nextPhase = map[models.Phase]models.Phase{
	models.PhaseAction:     models.PhaseDiscussion,
	models.PhaseDiscussion: models.PhaseVoting,
}

// AdvancePhase は現在のラウンドをaction→discussion→votingと進める。
// expectedは呼び出し側が見ているフェーズで、既に誰かが進めていればWriteConflict
func (e *Engine) AdvancePhase(ctx context.Context, gameID uint, roundNo int, expected models.Phase) (*models.Round, error) {
	var round *models.Round
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		game, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return storageError("get game", err)
		}
		if game.Status != models.StatusPlaying {
			return newError(KindInvalidPhaseTransition, "game %d is %s", gameID, game.Status)
		}
		round, err = currentRound(ctx, tx, gameID, roundNo)
		if err != nil {
			return err
		}
		next, ok := nextPhase[expected]
		if !ok {
			return newError(KindInvalidPhaseTransition, "phase %s does not advance on its own", expected)
		}
		if round.Phase != expected {
			return newError(KindWriteConflict, "round %d is already in %s", round.Round, round.Phase)
		}
		endsAt := e.deadline(next)
		if err := tx.UpdateRoundPhase(ctx, round.ID, expected, next, endsAt); err != nil {
			return storageError("update round phase", err)
		}
		round.Phase = next
		round.PhaseEndsAt = endsAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Phase advanced", zap.Uint("gameID", gameID), zap.Int("round", round.Round), zap.String("phase", string(round.Phase)))
	e.publish(ctx, roundAdvanced(gameID, round))
	return round, nil
}

// VotingOutcome はCompleteVotingPhaseの結果
type VotingOutcome struct {
	Round          int
	RoundCompleted bool
	IsGameFinished bool
	NextRound      *models.Round
	Results        []ArtifactResult
	Score          int
}

// CompleteVotingPhase は投票中のラウンドを集計し、次のラウンドか鑑人フェーズへ進める。
// 最終ラウンドではゲームをfinishedにする
func (e *Engine) CompleteVotingPhase(ctx context.Context, gameID uint, roundNo int) (*VotingOutcome, error) {
	outcome := &VotingOutcome{Round: roundNo}
	var identificationRound *models.Round

	err := e.repo.Transaction(ctx, func(tx Repository) error {
		game, err := tx.LockGame(ctx, gameID)
		if err != nil {
			return storageError("lock game", err)
		}
		if game.Status != models.StatusPlaying {
			return newError(KindInvalidPhaseTransition, "game %d is %s", gameID, game.Status)
		}
		round, err := currentRound(ctx, tx, gameID, roundNo)
		if err != nil {
			return err
		}
		if round.Phase != models.PhaseVoting {
			return newError(KindInvalidPhaseTransition, "round %d is in %s, not voting", round.Round, round.Phase)
		}
		// 先にフェーズを閉じて、以降の投票を締め出す
		if err := tx.UpdateRoundPhase(ctx, round.ID, models.PhaseVoting, models.PhaseResult, nil); err != nil {
			return storageError("close voting", err)
		}

		votes, err := tx.ListVotes(ctx, gameID, round.Round)
		if err != nil {
			return storageError("list votes", err)
		}
		artifacts, err := tx.ListArtifacts(ctx, gameID, round.Round)
		if err != nil {
			return storageError("list artifacts", err)
		}

		gained := 0
		for _, t := range Tally(artifacts, votes) {
			if err := tx.UpdateArtifactTally(ctx, t.Artifact.ID, t.Votes, t.Rank); err != nil {
				return storageError("update artifact tally", err)
			}
			res := ArtifactResult{ArtifactID: t.Artifact.ID, Zodiac: t.Artifact.Zodiac, Votes: t.Votes, Rank: t.Rank}
			if t.Rank != nil {
				genuine := t.Artifact.IsGenuine
				res.IsGenuine = &genuine
				if genuine {
					gained++
				}
			}
			outcome.Results = append(outcome.Results, res)
		}

		outcome.Score = game.Score + gained
		if err := tx.UpdateGameScore(ctx, gameID, game.Score, outcome.Score); err != nil {
			return storageError("update score", err)
		}
		outcome.RoundCompleted = true

		if round.Round < e.rules.TotalRounds {
			if err := tx.UpdateRoundPhase(ctx, round.ID, models.PhaseResult, models.PhaseFinished, nil); err != nil {
				return storageError("finish round", err)
			}
			outcome.NextRound, err = e.createRound(ctx, tx, gameID, round.Round+1)
			return err
		}

		endsAt := e.deadline(models.PhaseIdentification)
		if err := tx.UpdateRoundPhase(ctx, round.ID, models.PhaseResult, models.PhaseIdentification, endsAt); err != nil {
			return storageError("open identification", err)
		}
		round.Phase = models.PhaseIdentification
		round.PhaseEndsAt = endsAt
		identificationRound = round
		if err := tx.UpdateGameStatus(ctx, gameID, models.StatusPlaying, models.StatusFinished); err != nil {
			return storageError("finish game", err)
		}
		outcome.IsGameFinished = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Voting completed",
		zap.Uint("gameID", gameID),
		zap.Int("round", roundNo),
		zap.Int("score", outcome.Score),
		zap.Bool("gameFinished", outcome.IsGameFinished),
	)
	e.publish(ctx, Event{
		Name:    EventVotingComplete,
		GameID:  gameID,
		Payload: VotingCompletePayload{Round: roundNo, Results: outcome.Results, Score: outcome.Score},
	})
	if outcome.NextRound != nil {
		e.publish(ctx, roundAdvanced(gameID, outcome.NextRound))
	}
	if identificationRound != nil {
		e.publish(ctx, roundAdvanced(gameID, identificationRound))
		e.publishRoomUpdate(ctx, gameID)
	}
	return outcome, nil
}

// LeaveRoom はプレイヤーを退出させる。ホストが抜けたら残りのうちIDが最も小さいプレイヤーに引き継ぐ
func (e *Engine) LeaveRoom(ctx context.Context, playerID uint) error {
	var gameID uint
	left := false
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return storageError("get player", err)
		}
		if !player.Active() {
			return nil
		}
		gameID = player.GameID
		game, err := tx.LockGame(ctx, gameID)
		if err != nil {
			return storageError("lock game", err)
		}

		now := e.now()
		notHost, offline, notReady := false, false, false
		update := PlayerUpdate{LeftAt: &now, IsOnline: &offline, IsReady: &notReady}
		if player.IsHost {
			update.IsHost = &notHost
		}
		if err := tx.UpdatePlayer(ctx, playerID, update); err != nil {
			return storageError("update player", err)
		}

		remaining, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}
		if err := tx.UpdateGamePlayerCount(ctx, gameID, len(remaining)); err != nil {
			return storageError("update player count", err)
		}
		// 選択中に人数が足りなくなったら待機に戻し、参加を受け付け直す。選択は残すが準備は解除する
		if game.Status == models.StatusSelecting && len(remaining) < e.rules.MinPlayers {
			if err := tx.UpdateGameStatus(ctx, gameID, models.StatusSelecting, models.StatusWaiting); err != nil {
				return storageError("update game status", err)
			}
			for _, p := range remaining {
				if p.IsReady {
					if err := tx.UpdatePlayer(ctx, p.ID, PlayerUpdate{IsReady: &notReady}); err != nil {
						return storageError("update player", err)
					}
				}
			}
		}
		left = true
		if !player.IsHost || len(remaining) == 0 {
			return nil
		}

		// ListActivePlayersはID順なので先頭が新しいホスト
		next := remaining[0]
		isHost := true
		if err := tx.UpdatePlayer(ctx, next.ID, PlayerUpdate{IsHost: &isHost}); err != nil {
			return storageError("update player", err)
		}
		return storageError("update host", tx.UpdateGameHost(ctx, gameID, next.UserID))
	})
	if err != nil {
		return err
	}
	if left {
		e.logger.Info("Player left", zap.Uint("gameID", gameID), zap.Uint("playerID", playerID))
		e.publishRoomUpdate(ctx, gameID)
		// 退出自体は成功として扱う
		if err := e.completeIfAllVoted(ctx, gameID); err != nil {
			e.logger.Error("Failed to complete voting after leave", zap.Uint("gameID", gameID), zap.Error(err))
		}
	}
	return nil
}

// completeIfAllVoted は残ったプレイヤー全員が投票済みなら、投票か鑑人投票を締め切る
func (e *Engine) completeIfAllVoted(ctx context.Context, gameID uint) error {
	round, err := e.repo.GetCurrentRound(ctx, gameID)
	if err != nil {
		return storageError("get current round", err)
	}
	if round == nil {
		return nil
	}

	switch round.Phase {
	case models.PhaseVoting:
		status, err := e.VotingStatus(ctx, gameID, round.Round)
		if err != nil || !status.AllVoted {
			return err
		}
		_, err = e.CompleteVotingPhase(ctx, gameID, round.Round)
		if lostRace(err) {
			return nil
		}
		return err
	case models.PhaseIdentification:
		status, err := e.IdentificationStatus(ctx, gameID)
		if err != nil || !status.AllVoted {
			return err
		}
		_, err = e.CompleteIdentification(ctx, gameID)
		if lostRace(err) {
			return nil
		}
		return err
	}
	return nil
}

// SetOnline は接続状態を更新する。WebSocketゲートウェイから呼ばれる
func (e *Engine) SetOnline(ctx context.Context, playerID uint, online bool) error {
	player, err := e.repo.GetPlayer(ctx, playerID)
	if err != nil {
		return storageError("get player", err)
	}
	if !player.Active() || player.IsOnline == online {
		return nil
	}
	if err := e.repo.UpdatePlayer(ctx, playerID, PlayerUpdate{IsOnline: &online}); err != nil {
		return storageError("update player", err)
	}
	e.publishRoomUpdate(ctx, player.GameID)
	return nil
}

func (e *Engine) publishRoomUpdate(ctx context.Context, gameID uint) {
	ev, err := roomUpdate(ctx, e.repo, gameID)
	if err != nil {
		e.logger.Error("Failed to build room snapshot", zap.Uint("gameID", gameID), zap.Error(err))
		return
	}
	e.publish(ctx, ev)
}

func roundAdvanced(gameID uint, round *models.Round) Event {
	return Event{
		Name:    EventRoundAdvanced,
		GameID:  gameID,
		Payload: RoundAdvancedPayload{Round: round.Round, Phase: round.Phase, EndsAt: round.PhaseEndsAt},
	}
}
