package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments. A nil *AppMetrics
// is valid and records nothing.
type AppMetrics struct {
	AuthAttemptsTotal       metric.Int64Counter
	TokensIssuedTotal       metric.Int64Counter
	UsersCreatedTotal       metric.Int64Counter
	ProviderDurationSeconds metric.Float64Histogram
	DbQueryDurationSeconds  metric.Float64Histogram
	DbQueryErrorsTotal      metric.Int64Counter
}

// New creates every instrument on meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.AuthAttemptsTotal, err = meter.Int64Counter(
		"auth_attempts_total",
		metric.WithDescription("Authentication attempts by flow and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_attempts_total: %w", err)
	}

	m.TokensIssuedTotal, err = meter.Int64Counter(
		"tokens_issued_total",
		metric.WithDescription("Session token pairs issued"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: tokens_issued_total: %w", err)
	}

	m.UsersCreatedTotal, err = meter.Int64Counter(
		"users_created_total",
		metric.WithDescription("User accounts created by source"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: users_created_total: %w", err)
	}

	m.ProviderDurationSeconds, err = meter.Float64Histogram(
		"provider_call_duration_seconds",
		metric.WithDescription("Duration of identity provider calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: provider_call_duration_seconds: %w", err)
	}

	m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: db_query_duration_seconds: %w", err)
	}

	m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: db_query_errors_total: %w", err)
	}

	return m, nil
}

func (m *AppMetrics) AuthAttempt(ctx context.Context, flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

func (m *AppMetrics) TokensIssued(ctx context.Context, flow string) {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}

func (m *AppMetrics) UserCreated(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.UsersCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *AppMetrics) ProviderCall(ctx context.Context, provider, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ProviderDurationSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("op", op),
		attribute.Bool("error", err != nil),
	))
}

// DBQuery records the latency of one query and counts it as an error when
// err is set.
func (m *AppMetrics) DBQuery(ctx context.Context, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
