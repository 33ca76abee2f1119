// Package cleanup はフェッチ監査ログの自動削除ジョブを提供する。
// 保持期間を超過したfetch_logsを日次バッチで削除する。
// 保持日数0は削除無効を意味し、監査証跡を永続的に保持する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// FetchLogPruner は古いフェッチログの削除を抽象化するインターフェース。
type FetchLogPruner interface {
	// DeleteOlderThan は指定日数より古いフェッチログを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// CleanupJob は保持期間を超過したフェッチログの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	pruner        FetchLogPruner
	logger        *slog.Logger
	RetentionDays int // フェッチログの保持日数。0は削除無効
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(pruner FetchLogPruner, logger *slog.Logger, retentionDays int) *CleanupJob {
	return &CleanupJob{
		pruner:        pruner,
		logger:        logger,
		RetentionDays: retentionDays,
	}
}

// Run は保持期間を超過したフェッチログを削除する。
// RetentionDaysが0以下の場合は何もしない。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	if j.RetentionDays <= 0 {
		j.logger.Info("フェッチログの保持期間が未設定のためクリーンアップをスキップします")
		return nil
	}

	start := time.Now()

	deletedCount, err := j.pruner.DeleteOlderThan(ctx, j.RetentionDays)
	if err != nil {
		j.logger.Error("フェッチログクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("フェッチログクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("フェッチログクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunDaily は24時間ごとにRunを実行し続ける。起動直後にも1回実行する。
// コンテキストのキャンセルで停止する。
func (j *CleanupJob) RunDaily(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("初回クリーンアップに失敗しました", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("定期クリーンアップに失敗しました", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}
