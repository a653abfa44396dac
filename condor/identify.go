package condor

import (
	"context"
	"errors"
	"math"
	"sort"

	"condorserver/models"

	"go.uber.org/zap"
)

// IdentificationTarget は鑑人で当てる役職と、それを投票する陣営
type IdentificationTarget struct {
	Role        string
	AccuserCamp Camp
}

// IdentificationTargets は鑑人フェーズで投票する対象
var IdentificationTargets = []IdentificationTarget{
	{Role: RoleLaoChaofeng, AccuserCamp: CampGood},
	{Role: RoleYaoBuran, AccuserCamp: CampGood},
	{Role: RoleXuYuan, AccuserCamp: CampBad},
}

// IdentificationOutcome は対象役職ごとの鑑人結果
type IdentificationOutcome struct {
	TargetRole string `json:"targetRole"`
	AccusedID  uint   `json:"accusedId,omitempty"`
	Votes      int    `json:"votes"`
	Quorum     int    `json:"quorum"`
	Success    bool   `json:"success"`
}

// IdentificationStatus は鑑人投票の進み具合
type IdentificationStatus struct {
	VotedCount          int  `json:"votedCount"`
	TotalEligibleVoters int  `json:"totalEligibleVoters"`
	AllVoted            bool `json:"allVoted"`
}

// GameResult はゲーム終了時の結果
type GameResult struct {
	Winner          Camp                    `json:"winner"`
	Score           int                     `json:"score"`
	FinalScore      int                     `json:"finalScore"`
	Identifications []IdentificationOutcome `json:"identifications"`
}

// targetsFor は陣営が投票する対象役職
func targetsFor(camp Camp) []string {
	var out []string
	for _, t := range IdentificationTargets {
		if t.AccuserCamp == camp {
			out = append(out, t.Role)
		}
	}
	return out
}

// eligibleVoter は鑑人投票に参加できるかどうか
func eligibleVoter(p models.Player) (Role, bool) {
	role, ok := LookupRole(p.Role)
	if !ok || role.IdentificationExempt {
		return Role{}, false
	}
	return role, true
}

// SubmitIdentification は自陣営の対象役職それぞれについて、誰がその役職かを投票する。
// accusationsは対象役職→被疑者のプレイヤーID
func (e *Engine) SubmitIdentification(ctx context.Context, gameID, voterID uint, accusations map[string]uint) (IdentificationStatus, error) {
	var status IdentificationStatus
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		// ゲーム行を押さえてCompleteIdentificationや他の投票と直列にする
		if _, err := tx.LockGame(ctx, gameID); err != nil {
			return storageError("lock game", err)
		}
		if _, err := identificationRound(ctx, tx, gameID, KindPhaseNotAllowed); err != nil {
			return err
		}
		players, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}
		voter, ok := findActive(players, voterID)
		if !ok {
			return newError(KindNotFound, "player %d is not active in game %d", voterID, gameID)
		}
		role, ok := eligibleVoter(*voter)
		if !ok {
			return newError(KindRoleMismatch, "role %q does not take part in identification", voter.Role)
		}

		targets := targetsFor(role.Camp)
		if len(accusations) != len(targets) {
			return newError(KindInvalidTarget, "expected accusations for %v", targets)
		}
		votes := make([]models.IdentificationVote, 0, len(targets))
		for _, target := range targets {
			accused, ok := accusations[target]
			if !ok {
				return newError(KindInvalidTarget, "missing accusation for %s", target)
			}
			if _, err := otherPlayer(accused, voter, players); err != nil {
				return err
			}
			votes = append(votes, models.IdentificationVote{GameID: gameID, VoterID: voterID, TargetRole: target, AccusedID: accused})
		}

		err = tx.InsertIdentificationVotes(ctx, votes)
		if errors.Is(err, ErrDuplicate) {
			return newError(KindDuplicateVote, "player %d already submitted identification", voterID)
		}
		if err != nil {
			return storageError("insert identification votes", err)
		}

		all, err := tx.ListIdentificationVotes(ctx, gameID)
		if err != nil {
			return storageError("list identification votes", err)
		}
		status = identificationStatus(players, all)
		return nil
	})
	if err != nil {
		return status, err
	}

	e.logger.Info("Identification accepted", zap.Uint("gameID", gameID), zap.Uint("voterID", voterID),
		zap.Int("voted", status.VotedCount), zap.Int("eligible", status.TotalEligibleVoters))
	e.publish(ctx, Event{
		Name:    EventIdentificationUpdate,
		GameID:  gameID,
		Payload: IdentificationUpdatePayload{VotedCount: status.VotedCount, TotalEligibleVoters: status.TotalEligibleVoters},
	})

	if status.AllVoted {
		if _, err := e.CompleteIdentification(ctx, gameID); err != nil && !lostRace(err) {
			return status, err
		}
	}
	return status, nil
}

// IdentificationStatus は鑑人投票の状況
func (e *Engine) IdentificationStatus(ctx context.Context, gameID uint) (IdentificationStatus, error) {
	players, err := e.repo.ListActivePlayers(ctx, gameID)
	if err != nil {
		return IdentificationStatus{}, storageError("list players", err)
	}
	votes, err := e.repo.ListIdentificationVotes(ctx, gameID)
	if err != nil {
		return IdentificationStatus{}, storageError("list identification votes", err)
	}
	return identificationStatus(players, votes), nil
}

// identificationStatus は投票できるプレイヤーのうち投票済みの人数を数える
func identificationStatus(players []models.Player, votes []models.IdentificationVote) IdentificationStatus {
	eligible := make(map[uint]bool)
	for _, p := range players {
		if _, ok := eligibleVoter(p); ok {
			eligible[p.ID] = true
		}
	}
	voted := make(map[uint]bool)
	for _, v := range votes {
		if eligible[v.VoterID] {
			voted[v.VoterID] = true
		}
	}
	return IdentificationStatus{
		VotedCount:          len(voted),
		TotalEligibleVoters: len(eligible),
		AllVoted:            len(eligible) > 0 && len(voted) >= len(eligible),
	}
}

// CompleteIdentification は鑑人投票を締め切って勝敗を決める
func (e *Engine) CompleteIdentification(ctx context.Context, gameID uint) (*GameResult, error) {
	var result *GameResult
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		game, err := tx.LockGame(ctx, gameID)
		if err != nil {
			return storageError("lock game", err)
		}
		round, err := identificationRound(ctx, tx, gameID, KindInvalidPhaseTransition)
		if err != nil {
			return err
		}
		if err := tx.UpdateRoundPhase(ctx, round.ID, models.PhaseIdentification, models.PhaseFinished, nil); err != nil {
			return storageError("finish identification", err)
		}

		players, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}
		votes, err := tx.ListIdentificationVotes(ctx, gameID)
		if err != nil {
			return storageError("list identification votes", err)
		}

		outcomes := ResolveIdentifications(players, votes, e.rules.IdentificationQuorum)
		winner, final := DecideWinner(game.Score, outcomes, e.rules)
		if err := tx.UpdateGameWinner(ctx, gameID, string(winner)); err != nil {
			return storageError("update winner", err)
		}
		result = &GameResult{Winner: winner, Score: game.Score, FinalScore: final, Identifications: outcomes}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Game finished", zap.Uint("gameID", gameID), zap.String("winner", string(result.Winner)), zap.Int("finalScore", result.FinalScore))
	e.publish(ctx, Event{
		Name:   EventGameFinished,
		GameID: gameID,
		Payload: GameFinishedPayload{
			Winner:          result.Winner,
			Score:           result.Score,
			FinalScore:      result.FinalScore,
			Identifications: result.Identifications,
		},
	})
	e.publishRoomUpdate(ctx, gameID)
	return result, nil
}

// identificationRound は最終ラウンドが鑑人フェーズに入っていることを確かめる。違えばkindのエラー
func identificationRound(ctx context.Context, tx Repository, gameID uint, kind Kind) (*models.Round, error) {
	game, err := tx.GetGame(ctx, gameID)
	if err != nil {
		return nil, storageError("get game", err)
	}
	round, err := tx.GetCurrentRound(ctx, gameID)
	if err != nil {
		return nil, storageError("get current round", err)
	}
	if game.Status != models.StatusFinished || round == nil || round.Phase != models.PhaseIdentification {
		return nil, newError(kind, "game %d is not in the identification phase", gameID)
	}
	return round, nil
}

// Quorum は有権者数nのときに必要な票数
func Quorum(n int, fraction float64) int {
	return int(math.Floor(float64(n)*fraction)) + 1
}

// ResolveIdentifications は対象役職ごとに最多票の被疑者を決め、定足数と正誤を判定する。
// 同票ならプレイヤーIDの小さい方
func ResolveIdentifications(players []models.Player, votes []models.IdentificationVote, quorumFraction float64) []IdentificationOutcome {
	camps := make(map[uint]Camp)
	roleOf := make(map[uint]string, len(players))
	for _, p := range players {
		roleOf[p.ID] = p.Role
		if role, ok := eligibleVoter(p); ok {
			camps[p.ID] = role.Camp
		}
	}

	outcomes := make([]IdentificationOutcome, 0, len(IdentificationTargets))
	for _, target := range IdentificationTargets {
		electorate := 0
		for _, camp := range camps {
			if camp == target.AccuserCamp {
				electorate++
			}
		}

		counts := make(map[uint]int)
		for _, v := range votes {
			if v.TargetRole != target.Role {
				continue
			}
			if camp, ok := camps[v.VoterID]; !ok || camp != target.AccuserCamp {
				continue
			}
			counts[v.AccusedID]++
		}

		accused := make([]uint, 0, len(counts))
		for id := range counts {
			accused = append(accused, id)
		}
		sort.Slice(accused, func(i, j int) bool {
			if counts[accused[i]] != counts[accused[j]] {
				return counts[accused[i]] > counts[accused[j]]
			}
			return accused[i] < accused[j]
		})

		out := IdentificationOutcome{TargetRole: target.Role, Quorum: Quorum(electorate, quorumFraction)}
		if len(accused) > 0 {
			out.AccusedID = accused[0]
			out.Votes = counts[accused[0]]
			out.Success = out.Votes >= out.Quorum && roleOf[out.AccusedID] == target.Role
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// 鑑人の得点
const (
	identifyBonus        = 1 // 善陣営が悪陣営の役職を当てた
	xuYuanExposedPenalty = 2 // 悪陣営が許愿を当てた
)

// DecideWinner は累計点と鑑人結果から勝者と最終得点を決める。副作用はない
func DecideWinner(score int, outcomes []IdentificationOutcome, rules Rules) (Camp, int) {
	final := score
	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		for _, t := range IdentificationTargets {
			if t.Role != o.TargetRole {
				continue
			}
			if t.AccuserCamp == CampGood {
				final += identifyBonus
			} else {
				final -= xuYuanExposedPenalty
			}
		}
	}
	if final < 0 {
		final = 0
	}
	if final >= rules.WinningScore {
		return CampGood, final
	}
	return CampBad, final
}
