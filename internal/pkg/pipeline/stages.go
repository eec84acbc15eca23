package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"staybook/internal/cache"
	"staybook/internal/jobs"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/validator"
)

const tracerName = "staybook/usecase"

// Logging writes one line per call with its outcome and duration.
func Logging[Req, Res any](name string) Middleware[Req, Res] {
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, req Req) (Res, error) {
			start := time.Now()
			res, err := next(ctx, req)
			l := logger.Ctx(ctx)
			switch {
			case err == nil:
				l.Debug().Str("usecase", name).Dur("took", time.Since(start)).Msg("usecase ok")
			case apperr.IsTyped(err):
				l.Info().Str("usecase", name).Str("category", string(apperr.CategoryOf(err))).Err(err).Dur("took", time.Since(start)).Msg("usecase rejected")
			default:
				l.Error().Str("usecase", name).Err(err).Dur("took", time.Since(start)).Msg("usecase failed")
			}
			return res, err
		}
	}
}

// Validation checks the request's `validate` struct tags before the call.
func Validation[Req, Res any]() Middleware[Req, Res] {
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, req Req) (Res, error) {
			if err := validator.Struct(req); err != nil {
				var zero Res
				return zero, err
			}
			return next(ctx, req)
		}
	}
}

// Metrics counts use-case calls by outcome and observes their latency.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. A nil reg leaves them
// unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staybook",
			Name:      "usecase_calls_total",
			Help:      "Use-case calls by outcome.",
		}, []string{"usecase", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "staybook",
			Name:      "usecase_duration_seconds",
			Help:      "Use-case latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"usecase"}),
	}
}

// WithMetrics records every call on m. A nil m disables the stage.
func WithMetrics[Req, Res any](m *Metrics, name string) Middleware[Req, Res] {
	if m == nil {
		return nil
	}
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, req Req) (Res, error) {
			start := time.Now()
			res, err := next(ctx, req)
			m.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			m.calls.WithLabelValues(name, outcome(err)).Inc()
			return res, err
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if apperr.IsTyped(err) {
		return string(apperr.CategoryOf(err))
	}
	return "error"
}

// Tracing opens a span per call and marks untyped errors.
func Tracing[Req, Res any](name string) Middleware[Req, Res] {
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, req Req) (Res, error) {
			ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()
			res, err := next(ctx, req)
			if err != nil {
				span.SetAttributes(attribute.String("usecase.outcome", outcome(err)))
				if !apperr.IsTyped(err) {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
			}
			return res, err
		}
	}
}

// Audit enqueues the entry built by describe after a successful call. Enqueue
// failures are logged and never fail the call.
func Audit[Req, Res any](q jobs.Enqueuer, describe func(Req, Res) jobs.AuditEntry) Middleware[Req, Res] {
	if q == nil {
		return nil
	}
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, req Req) (Res, error) {
			res, err := next(ctx, req)
			if err != nil {
				return res, err
			}
			if aerr := jobs.Audit(ctx, q, describe(req, res)); aerr != nil {
				logger.Ctx(ctx).Warn().Err(aerr).Msg("audit enqueue failed")
			}
			return res, nil
		}
	}
}

// Caching serves JSON-encoded results from c for requests that key returns
// ok for. Cache errors fall through to the handler.
func Caching[Req, Res any](c cache.Cache, prefix string, ttl time.Duration, key func(Req) (string, bool)) Middleware[Req, Res] {
	if c == nil {
		return nil
	}
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, req Req) (Res, error) {
			k, ok := key(req)
			if !ok {
				return next(ctx, req)
			}
			k = cache.Key(prefix, k)
			if raw, hit, err := c.Get(ctx, k); err == nil && hit {
				var res Res
				if err := json.Unmarshal(raw, &res); err == nil {
					return res, nil
				}
			}
			res, err := next(ctx, req)
			if err != nil {
				return res, err
			}
			if raw, merr := json.Marshal(res); merr == nil {
				if serr := c.Set(ctx, k, raw, ttl); serr != nil {
					logger.Ctx(ctx).Warn().Err(serr).Msg("cache set failed")
				}
			}
			return res, nil
		}
	}
}
