package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics メトリクス定義
type Metrics struct {
	// 台帳エントリ数
	TransactionCount metric.Int64Counter

	// 国庫への入金額
	TreasuryCollected metric.Int64Counter

	// ショップ購入数
	PurchaseCount metric.Int64Counter

	// 活動報酬の付与額
	EarnCredited metric.Int64Counter

	// 活動報酬が付与されなかった回数
	EarnSkipped metric.Int64Counter

	// ロール変更の失敗数
	RoleSyncFailures metric.Int64Counter

	// リクエスト数
	RequestCount metric.Int64Counter

	// レスポンス時間
	ResponseTime metric.Float64Histogram

	// エラー数
	ErrorCount metric.Int64Counter
}

// NewMetrics 新しいMetricsを作成
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}

	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
	}{
		{&m.TransactionCount, "economy_transactions_total", "Total number of ledger entries"},
		{&m.TreasuryCollected, "economy_treasury_collected_total", "Total amount collected into treasuries"},
		{&m.PurchaseCount, "economy_shop_purchases_total", "Total number of shop purchases"},
		{&m.EarnCredited, "economy_earn_credited_total", "Total amount credited by activity rewards"},
		{&m.EarnSkipped, "economy_earn_skipped_total", "Total number of skipped activity rewards"},
		{&m.RoleSyncFailures, "economy_rolesync_failures_total", "Total number of failed role mutations"},
		{&m.RequestCount, "requests_total", "Total number of requests"},
		{&m.ErrorCount, "errors_total", "Total number of errors"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	responseTime, err := meter.Float64Histogram(
		"response_time_seconds",
		metric.WithDescription("Response time in seconds"),
	)
	if err != nil {
		return nil, err
	}
	m.ResponseTime = responseTime

	return m, nil
}

// RecordTransaction 台帳エントリを記録
func (m *Metrics) RecordTransaction(ctx context.Context, transactionType, currencyType string) {
	m.TransactionCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("transaction_type", transactionType),
			attribute.String("currency_type", currencyType),
		),
	)
}

// RecordTreasuryCollected 国庫への入金を記録
func (m *Metrics) RecordTreasuryCollected(ctx context.Context, transactionType, currencyType string, amount uint64) {
	m.TreasuryCollected.Add(ctx, int64(amount),
		metric.WithAttributes(
			attribute.String("transaction_type", transactionType),
			attribute.String("currency_type", currencyType),
		),
	)
}

// RecordPurchase ショップ購入を記録
func (m *Metrics) RecordPurchase(ctx context.Context, currencyType string, quantity uint32) {
	m.PurchaseCount.Add(ctx, int64(quantity),
		metric.WithAttributes(
			attribute.String("currency_type", currencyType),
		),
	)
}

// RecordEarn 活動報酬の付与を記録
func (m *Metrics) RecordEarn(ctx context.Context, activity, currencyType string, amount uint64) {
	m.EarnCredited.Add(ctx, int64(amount),
		metric.WithAttributes(
			attribute.String("activity", activity),
			attribute.String("currency_type", currencyType),
		),
	)
}

// RecordEarnSkipped 活動報酬のスキップを記録
func (m *Metrics) RecordEarnSkipped(ctx context.Context, reason string) {
	m.EarnSkipped.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("reason", reason),
		),
	)
}

// RecordRoleSyncFailure ロール変更の失敗を記録
func (m *Metrics) RecordRoleSyncFailure(ctx context.Context, action string) {
	m.RoleSyncFailures.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
		),
	)
}

// RecordRequest リクエストを記録
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	m.RequestCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordResponseTime レスポンス時間を記録
func (m *Metrics) RecordResponseTime(ctx context.Context, method, path string, duration float64) {
	m.ResponseTime.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordError エラーを記録
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.ErrorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errorType),
		),
	)
}
