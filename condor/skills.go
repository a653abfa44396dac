package condor

import (
	"context"
	"errors"

	"condorserver/models"

	"go.uber.org/zap"
)

// ActionRequest はスキルの入力。種類ごとに必須の対象が決まっている
type ActionRequest interface {
	Kind() models.ActionKind
}

// InspectArtifact は獣首の真贋を見る
type InspectArtifact struct {
	ArtifactID uint `json:"artifactId"`
}

// InspectPerson はプレイヤーの陣営を見る
type InspectPerson struct {
	PlayerID uint `json:"playerId"`
}

// Block は獣首を封じて鑑定できなくする
type Block struct {
	ArtifactID uint `json:"artifactId"`
}

// Attack はプレイヤーのスキルを封じる
type Attack struct {
	PlayerID uint `json:"playerId"`
}

// Swap は2つの獣首の真贋を入れ替える
type Swap struct {
	FirstArtifactID  uint `json:"firstArtifactId"`
	SecondArtifactID uint `json:"secondArtifactId"`
}

func (InspectArtifact) Kind() models.ActionKind { return models.ActionInspectArtifact }
func (InspectPerson) Kind() models.ActionKind   { return models.ActionInspectPerson }
func (Block) Kind() models.ActionKind           { return models.ActionBlock }
func (Attack) Kind() models.ActionKind          { return models.ActionAttack }
func (Swap) Kind() models.ActionKind            { return models.ActionSwap }

// Reading は鑑定結果
type Reading string

const (
	ReadingGenuine Reading = "genuine"
	ReadingFake    Reading = "fake"
	ReadingUnknown Reading = "unknown"
)

// ArtifactReading は使用者だけに返す獣首の鑑定結果
type ArtifactReading struct {
	ArtifactID uint    `json:"artifactId"`
	Zodiac     string  `json:"zodiac"`
	Reading    Reading `json:"reading"`
}

// PersonReading は使用者だけに返す陣営の鑑定結果
type PersonReading struct {
	PlayerID uint `json:"playerId"`
	Camp     Camp `json:"camp"`
}

// ActionResult はSubmitActionの結果。封鎖中は何も明かさない
type ActionResult struct {
	Seq      uint              `json:"seq"`
	Round    int               `json:"round"`
	Kind     models.ActionKind `json:"kind"`
	Blocked  bool              `json:"blocked"`
	Artifact *ArtifactReading  `json:"artifact,omitempty"`
	Person   *PersonReading    `json:"person,omitempty"`
}

// actionTargets は検証済みの対象
type actionTargets struct {
	player    *models.Player
	artifacts []*models.Artifact
}

// SubmitAction はスキルを検証して適用する。検証は役職、フェーズ、回数、対象の順で、
// どれかに失敗したら何も書き込まない
func (e *Engine) SubmitAction(ctx context.Context, gameID, actorID uint, req ActionRequest) (*ActionResult, error) {
	if req == nil {
		return nil, newError(KindInvalidTarget, "empty action")
	}
	kind := req.Kind()
	var result *ActionResult

	err := e.repo.Transaction(ctx, func(tx Repository) error {
		// ゲーム行を押さえて、回数の確認から追記までを直列にする
		game, err := tx.LockGame(ctx, gameID)
		if err != nil {
			return storageError("lock game", err)
		}
		players, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}

		// 1. 役職
		actor, ok := findActive(players, actorID)
		if !ok {
			return newError(KindRoleMismatch, "player %d is not active in game %d", actorID, gameID)
		}
		role, ok := LookupRole(actor.Role)
		quota := role.Quotas[kind]
		if !ok || quota == 0 {
			return newError(KindRoleMismatch, "role %q cannot use %s", actor.Role, kind)
		}

		// 2. フェーズ
		if game.Status != models.StatusPlaying {
			return newError(KindPhaseNotAllowed, "game %d is %s", gameID, game.Status)
		}
		round, err := tx.GetCurrentRound(ctx, gameID)
		if err != nil {
			return storageError("get current round", err)
		}
		if round == nil || round.Phase != models.PhaseAction {
			return newError(KindPhaseNotAllowed, "%s is only allowed in the action phase", kind)
		}
		if !role.SkillAllowedIn(round.Round) {
			return newError(KindPhaseNotAllowed, "%s cannot use %s in round %d", role.Name, kind, round.Round)
		}

		// 3. 回数
		used, err := tx.ListActions(ctx, ActionFilter{GameID: gameID, Round: round.Round, ActorID: actorID, Kind: kind})
		if err != nil {
			return storageError("list actions", err)
		}
		if len(used) >= quota {
			return newError(KindQuotaExceeded, "%s used %s %d/%d times in round %d", role.Name, kind, len(used), quota, round.Round)
		}

		// 4. 対象
		targets, err := resolveTargets(ctx, tx, req, actor, players, round)
		if err != nil {
			return err
		}

		action := &models.Action{
			GameID:  gameID,
			Round:   round.Round,
			ActorID: actorID,
			Kind:    kind,
			Blocked: isBlocked(actor, round.Round),
		}
		if targets.player != nil {
			action.TargetPlayerID = &targets.player.ID
		}
		if len(targets.artifacts) > 0 {
			action.TargetArtifactID = &targets.artifacts[0].ID
		}
		if len(targets.artifacts) > 1 {
			action.SecondArtifactID = &targets.artifacts[1].ID
		}
		if err := tx.AppendAction(ctx, action); err != nil {
			return storageError("append action", err)
		}

		result = &ActionResult{Seq: action.Seq, Round: round.Round, Kind: kind, Blocked: action.Blocked}
		if action.Blocked {
			return nil
		}
		return applyAction(ctx, tx, result, targets, round.Round)
	})
	if err != nil {
		e.logger.Info("Action rejected",
			zap.Uint("gameID", gameID),
			zap.Uint("actorID", actorID),
			zap.String("kind", string(kind)),
			zap.String("reason", string(KindOf(err))),
		)
		return nil, err
	}

	e.logger.Info("Action applied",
		zap.Uint("gameID", gameID),
		zap.Uint("actorID", actorID),
		zap.String("kind", string(kind)),
		zap.Uint("seq", result.Seq),
		zap.Bool("blocked", result.Blocked),
	)
	return result, nil
}

func isBlocked(p *models.Player, round int) bool {
	return p.BlockedRound == PermanentBlockRound || (p.BlockedRound != 0 && p.BlockedRound == round)
}

func resolveTargets(ctx context.Context, tx Repository, req ActionRequest, actor *models.Player, players []models.Player, round *models.Round) (actionTargets, error) {
	var t actionTargets
	switch r := req.(type) {
	case InspectArtifact:
		a, err := roundArtifact(ctx, tx, r.ArtifactID, round)
		if err != nil {
			return t, err
		}
		t.artifacts = []*models.Artifact{a}
	case Block:
		a, err := roundArtifact(ctx, tx, r.ArtifactID, round)
		if err != nil {
			return t, err
		}
		t.artifacts = []*models.Artifact{a}
	case Swap:
		if r.FirstArtifactID == r.SecondArtifactID {
			return t, newError(KindInvalidTarget, "swap needs two different artifacts")
		}
		first, err := roundArtifact(ctx, tx, r.FirstArtifactID, round)
		if err != nil {
			return t, err
		}
		second, err := roundArtifact(ctx, tx, r.SecondArtifactID, round)
		if err != nil {
			return t, err
		}
		t.artifacts = []*models.Artifact{first, second}
	case InspectPerson:
		p, err := otherPlayer(r.PlayerID, actor, players)
		if err != nil {
			return t, err
		}
		t.player = p
	case Attack:
		p, err := otherPlayer(r.PlayerID, actor, players)
		if err != nil {
			return t, err
		}
		t.player = p
	default:
		return t, newError(KindInvalidTarget, "unsupported action %s", req.Kind())
	}
	return t, nil
}

func roundArtifact(ctx context.Context, tx Repository, id uint, round *models.Round) (*models.Artifact, error) {
	if id == 0 {
		return nil, newError(KindInvalidTarget, "artifact is required")
	}
	a, err := tx.GetArtifact(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindInvalidTarget, "artifact %d does not exist", id)
	}
	if err != nil {
		return nil, storageError("get artifact", err)
	}
	if a.GameID != round.GameID || a.Round != round.Round {
		return nil, newError(KindInvalidTarget, "artifact %d is not part of round %d", id, round.Round)
	}
	return a, nil
}

func otherPlayer(id uint, actor *models.Player, players []models.Player) (*models.Player, error) {
	if id == 0 {
		return nil, newError(KindInvalidTarget, "player is required")
	}
	if id == actor.ID {
		return nil, newError(KindInvalidTarget, "cannot target yourself")
	}
	p, ok := findActive(players, id)
	if !ok {
		return nil, newError(KindInvalidTarget, "player %d is not active in this game", id)
	}
	return p, nil
}

// applyAction はスキルの効果を反映し、鑑定系ならresultに結果を入れる
func applyAction(ctx context.Context, tx Repository, result *ActionResult, t actionTargets, round int) error {
	switch result.Kind {
	case models.ActionInspectArtifact:
		a := t.artifacts[0]
		reading := ReadingFake
		switch {
		case a.IsBlocked:
			reading = ReadingUnknown
		case a.IsGenuine:
			reading = ReadingGenuine
		}
		result.Artifact = &ArtifactReading{ArtifactID: a.ID, Zodiac: a.Zodiac, Reading: reading}

	case models.ActionInspectPerson:
		camp := CampGood
		if role, ok := LookupRole(t.player.Role); ok {
			camp = role.ApparentCamp()
		}
		result.Person = &PersonReading{PlayerID: t.player.ID, Camp: camp}

	case models.ActionBlock:
		a := t.artifacts[0]
		return storageError("block artifact", tx.UpdateArtifactFlags(ctx, a.ID, a.IsGenuine, true, a.IsSwapped))

	case models.ActionAttack:
		if t.player.BlockedRound == PermanentBlockRound {
			return nil
		}
		blocked := round
		if role, ok := LookupRole(t.player.Role); ok && role.PermanentOnAttack {
			blocked = PermanentBlockRound
		}
		return storageError("block player", tx.UpdatePlayer(ctx, t.player.ID, PlayerUpdate{BlockedRound: &blocked}))

	case models.ActionSwap:
		first, second := t.artifacts[0], t.artifacts[1]
		if err := tx.UpdateArtifactFlags(ctx, first.ID, second.IsGenuine, first.IsBlocked, true); err != nil {
			return storageError("swap artifact", err)
		}
		return storageError("swap artifact", tx.UpdateArtifactFlags(ctx, second.ID, first.IsGenuine, second.IsBlocked, true))
	}
	return nil
}

// ListMyActions はプレイヤー自身のスキル履歴をSeq順に返す
func (e *Engine) ListMyActions(ctx context.Context, gameID, playerID uint) ([]models.Action, error) {
	actions, err := e.repo.ListActions(ctx, ActionFilter{GameID: gameID, ActorID: playerID})
	if err != nil {
		return nil, storageError("list actions", err)
	}
	return actions, nil
}
