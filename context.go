package authgate

import (
	"context"
	"net/http"
)

type requestHeadersContextKey struct{}

// WithRequestHeaders attaches a copy of h to ctx. The projector reads these before it
// falls back to the process-wide [HeaderStore].
func WithRequestHeaders(ctx context.Context, h http.Header) context.Context {
	return context.WithValue(ctx, requestHeadersContextKey{}, cloneHeader(h))
}

// RequestHeadersFromContext returns a copy of the headers attached by WithRequestHeaders.
func RequestHeadersFromContext(ctx context.Context) (http.Header, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(requestHeadersContextKey{}).(http.Header)
	if !ok {
		return nil, false
	}
	return h.Clone(), true
}
