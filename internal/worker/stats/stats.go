// Package stats はマスターごとの空き枠数を定期的に集計し、メトリクスに反映するジョブを提供する。
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/salonbook/internal/metrics"
)

// DefaultSchedule は集計ジョブのデフォルト実行スケジュール（5分ごと）。
const DefaultSchedule = "*/5 * * * *"

// FreeSlotCounter はマスターごとの空き枠数を返すインターフェース。
type FreeSlotCounter interface {
	FreeSlotCounts(ctx context.Context) (map[string]int, error)
}

// Job は空き枠数の集計ジョブ。
type Job struct {
	counter   FreeSlotCounter
	collector metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(counter FreeSlotCounter, collector metrics.MetricsCollector, logger *slog.Logger) *Job {
	return &Job{
		counter:   counter,
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Run は1回分の集計を実行し、ゲージを置き換える。
// 集計に失敗した場合はゲージを更新しない。
func (j *Job) Run(ctx context.Context) error {
	start := j.now()

	counts, err := j.counter.FreeSlotCounts(ctx)
	if err != nil {
		j.logger.Error("空き枠数の集計に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("空き枠数の集計に失敗: %w", err)
	}

	duration := j.now().Sub(start)
	j.collector.SetFreeSlots(counts)
	j.collector.RecordStatsRefresh(duration)

	total := 0
	for _, n := range counts {
		total += n
	}
	j.logger.Info("空き枠数の集計が完了しました",
		slog.Int("masters", len(counts)),
		slog.Int("free_slots", total),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

// Start はcron形式のscheduleでジョブを起動する。
// 起動直後に1回実行し、ctxがキャンセルされると実行中のジョブの完了を待って戻る。
// scheduleが不正な場合はジョブを起動せずにエラーを返す。
func (j *Job) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { _ = j.Run(ctx) }); err != nil {
		return fmt.Errorf("集計スケジュールが不正です %q: %w", schedule, err)
	}

	j.logger.Info("空き枠集計ジョブを開始しました",
		slog.String("schedule", schedule),
	)

	// 起動直後に1回実行
	_ = j.Run(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	j.logger.Info("空き枠集計ジョブを停止しました")
	return nil
}
