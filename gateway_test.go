package authgate

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type capturedRequest struct {
	method     string
	url        string
	host       string
	remoteAddr string
	header     http.Header
	body       string
	calls      int
}

func capturingHandler(c *capturedRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.method = r.Method
		c.url = r.URL.String()
		c.host = r.Host
		c.remoteAddr = r.RemoteAddr
		c.header = r.Header
		b, _ := io.ReadAll(r.Body)
		c.body = string(b)
		w.Header().Set("X-Provider", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func TestGatewayRejectsUnsupportedMethods(t *testing.T) {
	for _, method := range []string{
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
		http.MethodOptions,
		http.MethodHead,
		http.MethodTrace,
		"PROPFIND",
	} {
		t.Run(method, func(t *testing.T) {
			var c capturedRequest
			m := NewMetrics(MetricsConfig{Enabled: true})
			g := NewGateway(capturingHandler(&c), GatewayOptions{Metrics: m})

			rec := httptest.NewRecorder()
			g.ServeHTTP(rec, httptest.NewRequest(method, "/api/auth/sign-in/email", strings.NewReader("{}")))

			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", rec.Code)
			}
			if c.calls != 0 {
				t.Fatal("provider handler must not be invoked")
			}
			if got := rec.Header().Get("Allow"); got != "GET, POST" {
				t.Fatalf("Allow = %q", got)
			}
			if m.Value(MetricGatewayRejected) != 1 || m.Value(MetricGatewayForwarded) != 0 {
				t.Fatalf("unexpected counters %+v", m.Snapshot().Counters)
			}
		})
	}
}

func TestGatewayForwardsRequestUnchanged(t *testing.T) {
	for _, tc := range []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPost, `{"email":"a@example.com","password":"secret-pw"}`},
	} {
		t.Run(tc.method, func(t *testing.T) {
			var c capturedRequest
			m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
			g := NewGateway(capturingHandler(&c), GatewayOptions{Metrics: m})

			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, "http://api.example.com/api/auth/get-session?x=1&y=two", body)
			req.Header.Set("Cookie", "authgate.session_token=abc.def")
			req.Header.Add("X-Multi", "one")
			req.Header.Add("X-Multi", "two")
			req.RemoteAddr = "203.0.113.7:4242"

			rec := httptest.NewRecorder()
			g.ServeHTTP(rec, req)

			if c.calls != 1 {
				t.Fatalf("calls = %d", c.calls)
			}
			if c.method != tc.method {
				t.Fatalf("method = %q", c.method)
			}
			if c.url != req.URL.String() {
				t.Fatalf("url = %q, want %q", c.url, req.URL.String())
			}
			if c.host != "api.example.com" || c.remoteAddr != "203.0.113.7:4242" {
				t.Fatalf("host/remote = %q %q", c.host, c.remoteAddr)
			}
			if c.body != tc.body {
				t.Fatalf("body = %q, want %q", c.body, tc.body)
			}
			if got := c.header.Values("X-Multi"); len(got) != 2 || got[0] != "one" || got[1] != "two" {
				t.Fatalf("X-Multi = %v", got)
			}
			if c.header.Get("Cookie") != "authgate.session_token=abc.def" {
				t.Fatalf("cookie not forwarded: %v", c.header)
			}

			// The provider response is written unchanged.
			if rec.Code != http.StatusTeapot || rec.Header().Get("X-Provider") != "yes" || rec.Body.String() != `{"ok":true}` {
				t.Fatalf("response = %d %v %q", rec.Code, rec.Header(), rec.Body.String())
			}
			if m.Value(MetricGatewayForwarded) != 1 {
				t.Fatal("forward not counted")
			}
			var observed uint64
			for _, n := range m.Snapshot().Histograms[MetricGatewayLatency] {
				observed += n
			}
			if observed != 1 {
				t.Fatalf("latency observations = %d", observed)
			}
		})
	}
}

func TestGatewayDoesNotMutateInboundRequest(t *testing.T) {
	g := NewGateway(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("X-Injected", "1")
		r.Header.Del("Authorization")
		r.URL.Path = "/rewritten"
		r.Method = http.MethodDelete
		w.WriteHeader(http.StatusNoContent)
	}), GatewayOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer tok")
	g.ServeHTTP(httptest.NewRecorder(), req)

	if req.Header.Get("X-Injected") != "" || req.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("inbound headers mutated: %v", req.Header)
	}
	if req.URL.Path != "/api/auth/sign-out" || req.Method != http.MethodPost {
		t.Fatalf("inbound request mutated: %s %s", req.Method, req.URL.Path)
	}
}

func TestGatewayBehindChiCatchAll(t *testing.T) {
	inner := chi.NewRouter()
	inner.Get("/api/auth/callback/{provider}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(r, "provider")))
	})

	outer := chi.NewRouter()
	outer.Handle("/api/auth/*", NewGateway(inner, GatewayOptions{}))

	rec := httptest.NewRecorder()
	outer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/callback/google", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "google" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestGatewayRecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	var c capturedRequest
	g := NewGateway(capturingHandler(&c), GatewayOptions{TracerProvider: tp})
	g.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/ok", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Name() != "authgate.gateway" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	var status int64
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "http.response.status_code" {
			status = kv.Value.AsInt64()
		}
	}
	if status != http.StatusTeapot {
		t.Fatalf("status attribute = %d", status)
	}
}
