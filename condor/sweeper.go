package condor

import (
	"context"

	"condorserver/models"

	"go.uber.org/zap"
)

// AdvanceExpired は制限時間を過ぎたラウンドを1段階進める。cronから定期的に呼ばれる。
// 他の接続が先に進めていた場合は何もしない
func (e *Engine) AdvanceExpired(ctx context.Context) (int, error) {
	rounds, err := e.repo.ListExpiredRounds(ctx, e.now())
	if err != nil {
		return 0, storageError("list expired rounds", err)
	}

	advanced := 0
	for _, r := range rounds {
		var err error
		switch r.Phase {
		case models.PhaseAction, models.PhaseDiscussion:
			_, err = e.AdvancePhase(ctx, r.GameID, r.Round, r.Phase)
		case models.PhaseVoting:
			_, err = e.CompleteVotingPhase(ctx, r.GameID, r.Round)
		case models.PhaseIdentification:
			_, err = e.CompleteIdentification(ctx, r.GameID)
		default:
			continue
		}
		if err != nil {
			if lostRace(err) {
				continue
			}
			e.logger.Error("Failed to advance expired round",
				zap.Uint("gameID", r.GameID),
				zap.Int("round", r.Round),
				zap.String("phase", string(r.Phase)),
				zap.Error(err),
			)
			continue
		}
		advanced++
	}
	return advanced, nil
}

// CleanupFinished は保持期間を過ぎた終了済みのゲームを削除する
func (e *Engine) CleanupFinished(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := e.now().AddDate(0, 0, -retentionDays)
	n, err := e.repo.DeleteFinishedGamesBefore(ctx, cutoff)
	if err != nil {
		return 0, storageError("delete finished games", err)
	}
	return n, nil
}
