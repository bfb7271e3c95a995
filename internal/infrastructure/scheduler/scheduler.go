// Package scheduler 月次税の徴収やロール期限の回収などの定期ジョブを実行する
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// JobFunc 定期実行される処理
type JobFunc func(ctx context.Context) error

// Scheduler cronベースのジョブスケジューラ
type Scheduler struct {
	cron    *cron.Cron
	logger  *otelinfra.Logger
	metrics *otelinfra.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

// New 設定のタイムゾーンで動くSchedulerを作成
func New(cfg config.SchedulerConfig, logger *otelinfra.Logger, metrics *otelinfra.Metrics) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduler timezone: %w", err)
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Add ジョブを登録する
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) run(name string, fn JobFunc) {
	ctx := s.ctx
	start := time.Now()
	s.logger.Info(ctx, "Scheduled job started", map[string]interface{}{
		"job": name,
	})
	if err := fn(ctx); err != nil {
		s.logger.Error(ctx, "Scheduled job failed", err, map[string]interface{}{
			"job": name,
		})
		s.metrics.RecordError(ctx, "job_"+name+"_failed")
		return
	}
	s.logger.Info(ctx, "Scheduled job finished", map[string]interface{}{
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// Len 登録済みジョブの数
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run ctxがキャンセルされるまでジョブを実行する。実行中のジョブの終了を待ってから戻る
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info(ctx, "Scheduler started", map[string]interface{}{
		"jobs":     s.Len(),
		"location": s.cron.Location().String(),
	})

	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info(context.Background(), "Scheduler stopped", nil)
	return nil
}

// cronLogger cron内部のログを構造化ロガーへ流す
type cronLogger struct {
	logger *otelinfra.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), "cron: "+msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), "cron: "+msg, err, fields(keysAndValues))
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
