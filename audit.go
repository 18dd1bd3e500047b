package authgate

import (
	"context"
	"io"
	"log/slog"

	"github.com/MrEthical07/authgate/internal/audit"
)

// AuditEvent is one record of the authentication audit trail.
type AuditEvent = audit.Event

// AuditSink receives audit events. Sinks are called from the dispatcher goroutine.
type AuditSink = audit.Sink

type (
	NoOpSink    = audit.NoOpSink
	ChannelSink = audit.ChannelSink
	WriterSink  = audit.WriterSink
	LoggerSink  = audit.LoggerSink
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewWriterSink writes events to w as JSON lines.
func NewWriterSink(w io.Writer) *WriterSink { return audit.NewWriterSink(w) }

// NewLoggerSink logs each event through logger at level.
func NewLoggerSink(logger *slog.Logger, level slog.Level) *LoggerSink {
	return audit.NewLoggerSink(logger, level)
}

// MultiAuditSink fans each event out to sinks in order.
func MultiAuditSink(sinks ...AuditSink) AuditSink { return audit.Multi(sinks...) }

var auditMetric = map[string]MetricID{
	audit.EventSignInSuccess:        MetricSignInSuccess,
	audit.EventSignInFailure:        MetricSignInFailure,
	audit.EventSignOut:              MetricSignOut,
	audit.EventSessionCreated:       MetricSessionCreated,
	audit.EventRateLimited:          MetricRateLimited,
	audit.EventHookRejected:         MetricGuardRejected,
	audit.EventSignupRejected:       MetricSignupRejected,
	audit.EventUserCreated:          MetricUserCreated,
	audit.EventPasswordResetRequest: MetricPasswordResetRequest,
	audit.EventPasswordResetConfirm: MetricPasswordResetConfirm,
	audit.EventVerificationSent:     MetricVerificationSent,
	audit.EventEmailVerified:        MetricEmailVerified,
}

// metricsSink counts provider events synchronously, before they reach the dispatcher,
// so counters stay exact even when the dispatcher drops.
type metricsSink struct {
	metrics *Metrics
}

func (s metricsSink) Emit(_ context.Context, ev AuditEvent) {
	if id, ok := auditMetric[ev.EventType]; ok {
		s.metrics.Inc(id)
	}
}

// auditPipeline is the sink handed to the provider: metrics first, then the optional
// asynchronous dispatcher in front of the user sink.
type auditPipeline struct {
	metrics    metricsSink
	dispatcher *audit.Dispatcher
}

func newAuditPipeline(cfg AuditConfig, sink AuditSink, metrics *Metrics) *auditPipeline {
	return &auditPipeline{
		metrics: metricsSink{metrics: metrics},
		dispatcher: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Enabled && sink != nil,
			BufferSize: cfg.BufferSize,
			DropIfFull: cfg.DropIfFull,
		}, sink),
	}
}

func (p *auditPipeline) Emit(ctx context.Context, ev AuditEvent) {
	p.metrics.Emit(ctx, ev)
	p.dispatcher.Emit(ctx, ev)
}

func (p *auditPipeline) Close() {
	p.dispatcher.Close()
}

func (p *auditPipeline) Dropped() uint64 {
	return p.dispatcher.Dropped()
}
