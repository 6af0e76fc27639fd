// Package cleanup は不要になったレコードの定期削除ジョブを提供する。
// 期限切れのセッションと、Nestの削除で取り残されたTimeを削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// 削除対象の種類。メトリクスのラベルとログに使う。
const (
	KindSessions = "sessions"
	KindTimes    = "orphan_times"
)

// SessionSweeper は期限切れセッションの削除インターフェース。
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// OrphanSweeper は参照先Nestを失ったTimeの削除インターフェース。
type OrphanSweeper interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// Recorder は削除件数のメトリクス記録インターフェース。
type Recorder interface {
	RecordCleanup(kind string, deleted int64)
}

// CleanupJob は期限切れセッションと孤立したTimeを削除するジョブ。
// 削除対象がない場合も成功として扱うため、何度実行してもよい。
type CleanupJob struct {
	sessions SessionSweeper
	times    OrphanSweeper
	recorder Recorder
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(sessions SessionSweeper, times OrphanSweeper, recorder Recorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		sessions: sessions,
		times:    times,
		recorder: recorder,
		logger:   logger,
	}
}

// Run は削除処理を1回実行する。
// 一方の削除が失敗しても他方は実行し、失敗をまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	var errs []error
	for _, task := range []struct {
		kind  string
		sweep func(context.Context) (int64, error)
	}{
		{KindSessions, j.sessions.DeleteExpired},
		{KindTimes, j.times.DeleteOrphans},
	} {
		deleted, err := task.sweep(ctx)
		if err != nil {
			j.logger.Error("クリーンアップに失敗しました",
				slog.String("kind", task.kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%sの削除に失敗: %w", task.kind, err))
			continue
		}
		if j.recorder != nil {
			j.recorder.RecordCleanup(task.kind, deleted)
		}
		j.logger.Info("クリーンアップが完了しました",
			slog.String("kind", task.kind),
			slog.Int64("deleted_count", deleted),
		)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return errors.Join(errs...)
}

// Start はinterval間隔でRunを繰り返す。起動直後に1回実行する。
// コンテキストがキャンセルされるまで戻らない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	j.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップサイクルの実行に失敗しました", slog.String("error", err.Error()))
	}
}
