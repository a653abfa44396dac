package condor

import (
	"context"
	"errors"

	"condorserver/models"

	"go.uber.org/zap"
)

// VotingStatus は投票の進み具合
type VotingStatus struct {
	Round    int  `json:"round"`
	Voted    int  `json:"votedCount"`
	Eligible int  `json:"totalEligibleVoters"`
	AllVoted bool `json:"allVoted"`
}

// VoteReceipt はSubmitVoteの結果。最後の1票で集計まで進んだときはOutcomeが入る
type VoteReceipt struct {
	Status  VotingStatus
	Outcome *VotingOutcome
}

// SubmitVote は獣首に1票入れる。同じラウンドで2回目の投票はDuplicateVote。
// 全員が投票し終えたらそのまま集計する
func (e *Engine) SubmitVote(ctx context.Context, gameID uint, roundNo int, voterID, artifactID uint) (*VoteReceipt, error) {
	receipt := &VoteReceipt{}
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		game, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return storageError("get game", err)
		}
		if game.Status != models.StatusPlaying {
			return newError(KindPhaseNotAllowed, "game %d is %s", gameID, game.Status)
		}
		round, err := currentRound(ctx, tx, gameID, roundNo)
		if err != nil {
			return err
		}
		if round.Phase != models.PhaseVoting {
			return newError(KindPhaseNotAllowed, "round %d is in %s", round.Round, round.Phase)
		}

		players, err := tx.ListActivePlayers(ctx, gameID)
		if err != nil {
			return storageError("list players", err)
		}
		if _, ok := findActive(players, voterID); !ok {
			return newError(KindNotFound, "player %d is not active in game %d", voterID, gameID)
		}

		artifact, err := tx.GetArtifact(ctx, artifactID)
		if errors.Is(err, ErrNotFound) {
			return newError(KindInvalidTarget, "artifact %d does not exist", artifactID)
		}
		if err != nil {
			return storageError("get artifact", err)
		}
		if artifact.GameID != gameID || artifact.Round != round.Round {
			return newError(KindInvalidTarget, "artifact %d is not part of round %d", artifactID, round.Round)
		}

		// ラウンド行を押さえて、集計と同時に票が紛れ込まないようにする
		err = tx.UpdateRoundPhase(ctx, round.ID, models.PhaseVoting, models.PhaseVoting, round.PhaseEndsAt)
		if errors.Is(err, ErrConflict) {
			return newError(KindPhaseNotAllowed, "voting for round %d has closed", round.Round)
		}
		if err != nil {
			return storageError("guard round", err)
		}

		err = tx.InsertVote(ctx, &models.Vote{GameID: gameID, Round: round.Round, VoterID: voterID, ArtifactID: artifactID})
		if errors.Is(err, ErrDuplicate) {
			return newError(KindDuplicateVote, "player %d already voted in round %d", voterID, round.Round)
		}
		if err != nil {
			return storageError("insert vote", err)
		}

		votes, err := tx.ListVotes(ctx, gameID, round.Round)
		if err != nil {
			return storageError("list votes", err)
		}
		receipt.Status = votingStatus(round.Round, players, votes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Vote accepted",
		zap.Uint("gameID", gameID),
		zap.Int("round", receipt.Status.Round),
		zap.Uint("voterID", voterID),
		zap.Int("voted", receipt.Status.Voted),
		zap.Int("eligible", receipt.Status.Eligible),
	)

	if receipt.Status.AllVoted {
		outcome, err := e.CompleteVotingPhase(ctx, gameID, receipt.Status.Round)
		switch {
		case err == nil:
			receipt.Outcome = outcome
		case lostRace(err):
			// 他の接続が先に集計した
		default:
			return receipt, err
		}
	}
	return receipt, nil
}

// VotingStatus は現在のラウンドの投票状況
func (e *Engine) VotingStatus(ctx context.Context, gameID uint, roundNo int) (VotingStatus, error) {
	round, err := currentRound(ctx, e.repo, gameID, roundNo)
	if err != nil {
		return VotingStatus{}, err
	}
	players, err := e.repo.ListActivePlayers(ctx, gameID)
	if err != nil {
		return VotingStatus{}, storageError("list players", err)
	}
	votes, err := e.repo.ListVotes(ctx, gameID, round.Round)
	if err != nil {
		return VotingStatus{}, storageError("list votes", err)
	}
	return votingStatus(round.Round, players, votes), nil
}

// votingStatus はアクティブなプレイヤーの票だけを数える
func votingStatus(round int, players []models.Player, votes []models.Vote) VotingStatus {
	voted := 0
	for _, v := range votes {
		if _, ok := findActive(players, v.VoterID); ok {
			voted++
		}
	}
	return VotingStatus{
		Round:    round,
		Voted:    voted,
		Eligible: len(players),
		AllVoted: len(players) > 0 && voted >= len(players),
	}
}

// lostRace は他の呼び出しが先に状態を進めたときのエラーかどうか
func lostRace(err error) bool {
	switch KindOf(err) {
	case KindWriteConflict, KindRoundMismatch, KindInvalidPhaseTransition:
		return true
	}
	return false
}
