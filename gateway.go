package authgate

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrEthical07/authgate"

// GatewayOptions are optional collaborators of a Gateway.
type GatewayOptions struct {
	Metrics *Metrics
	Logger  *slog.Logger
	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
}

// Gateway is the catch-all handler for the auth namespace. GET and POST are rebuilt
// into a fresh request and served by the provider handler; everything else is 405.
type Gateway struct {
	next    http.Handler
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewGateway wraps next, usually the provider handler.
func NewGateway(next http.Handler, opts GatewayOptions) *Gateway {
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		next:    next,
		metrics: opts.Metrics,
		logger:  logger,
		tracer:  tp.Tracer(tracerName),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		g.metrics.Inc(MetricGatewayRejected)
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	ctx, span := g.tracer.Start(r.Context(), "authgate.gateway",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()

	body, err := readBody(r)
	if err != nil {
		g.metrics.Inc(MetricGatewayRejected)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		g.logger.WarnContext(ctx, "gateway body read failed", slog.Any("error", err))
		http.Error(w, "unable to read request body", http.StatusBadRequest)
		return
	}

	fwd, err := forwardRequest(ctx, r, body)
	if err != nil {
		g.metrics.Inc(MetricGatewayRejected)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sw := &statusWriter{ResponseWriter: w}
	g.next.ServeHTTP(sw, fwd)

	status := sw.statusCode()
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	g.metrics.Inc(MetricGatewayForwarded)
	g.metrics.Observe(MetricGatewayLatency, time.Since(start))
}

// readBody consumes r.Body once. The inbound request is otherwise left untouched.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	return io.ReadAll(r.Body)
}

// forwardRequest builds the provider-facing copy of r. The chi route context of the
// outer router is cleared so the provider router resolves the full path itself.
func forwardRequest(ctx context.Context, r *http.Request, body []byte) (*http.Request, error) {
	ctx = context.WithValue(ctx, chi.RouteCtxKey, nil)
	fwd, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	fwd.Header = r.Header.Clone()
	if fwd.Header == nil {
		fwd.Header = http.Header{}
	}
	fwd.Host = r.Host
	fwd.RemoteAddr = r.RemoteAddr
	fwd.RequestURI = r.RequestURI
	fwd.Proto, fwd.ProtoMajor, fwd.ProtoMinor = r.Proto, r.ProtoMajor, r.ProtoMinor
	fwd.TLS = r.TLS
	return fwd, nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
