package utils

import (
	"context"
	"time"

	"condorserver/condor"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper はcronから呼ぶエンジンの定期処理
type Sweeper interface {
	AdvanceExpired(ctx context.Context) (int, error)
	CleanupFinished(ctx context.Context, retentionDays int) (int64, error)
}

var _ Sweeper = (*condor.Engine)(nil)

// CronSweeper は期限切れフェーズの進行と終了済みルームの削除を登録して開始する。
// 返したcronは呼び出し側がStopする
func CronSweeper(engine Sweeper, retentionDays int, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	// 期限切れフェーズを進めるジョブ（5秒ごと）
	if _, err := c.AddFunc("@every 5s", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := engine.AdvanceExpired(ctx)
		if err != nil {
			logger.Error("期限切れフェーズの進行に失敗しました", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("期限切れフェーズを進行", zap.Int("rounds", n))
		}
	}); err != nil {
		return nil, err
	}

	// 終了済みのルームを削除するジョブ（"分 時 日 月 曜日"）
	if _, err := c.AddFunc("0 3 * * *", func() {
		logger.Info("終了済みのルームを削除する処理を開始")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := engine.CleanupFinished(ctx, retentionDays)
		if err != nil {
			logger.Error("終了済みのルーム削除に失敗しました", zap.Error(err))
			return
		}
		logger.Info("終了済みのルーム削除完了", zap.Int64("rooms_deleted", n))
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
