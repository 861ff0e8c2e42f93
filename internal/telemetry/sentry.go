// Package telemetry wraps Sentry tracing for the pipeline services.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const serverName = "doclib"

// Config controls Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init sets up the Sentry client and returns a flush function for shutdown.
// An empty DSN disables telemetry and returns a no-op flush.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	rate := cfg.TracesSampleRate
	if rate == 0 {
		rate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		EnableTracing:    true,
		TracesSampleRate: rate,
		Debug:            cfg.Debug,
		ServerName:       serverName,
		TracesSampler:    sampler(rate),
	})
	if err != nil {
		log.Printf("sentry: init failed, continuing without tracing: %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing enabled (environment=%s sample_rate=%.2f)", env, rate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// sampler drops health probes and makes child spans inherit the
// parent's sampling decision.
func sampler(rate float64) sentry.TracesSampler {
	return func(sc sentry.SamplingContext) float64 {
		if sc.Span.Name == "GET /health" || sc.Span.Name == "GET /ready" {
			return 0.0
		}
		var root sentry.SpanID
		if sc.Span.ParentSpanID != root {
			if sc.Span.Sampled.Bool() {
				return 1.0
			}
			return 0.0
		}
		return rate
	}
}

// SpanAttributes tags a span with pipeline identifiers.
type SpanAttributes struct {
	DocumentID string
	QueryID    string
	Operation  string
}

// Span is a thin handle around a Sentry span. All methods are safe on a
// span created while Sentry is uninitialized.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a child span under the transaction in ctx, or starts a
// new transaction when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.QueryID != "" {
		span.SetTag("query_id", attrs.QueryID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports the error.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// CaptureError reports an error outside of a span, preferring the hub
// bound to ctx when one exists.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
