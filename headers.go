package authgate

import (
	"net/http"
	"sync"
)

var (
	headerStoreOnce sync.Once
	headerStore     *HeaderStore
)

// HeaderStore holds the headers of "the current request" for code that cannot see the
// request. It is a single process-wide slot: SetHeaders overwrites, GetHeaders copies.
//
// The mutex makes access memory safe; it does not make it per-request. Two requests
// in flight will observe each other's headers. Use [WithRequestHeaders] for that.
type HeaderStore struct {
	mu      sync.RWMutex
	headers http.Header
}

// Headers returns the process-wide HeaderStore, creating it on first use.
func Headers() *HeaderStore {
	headerStoreOnce.Do(func() {
		headerStore = &HeaderStore{headers: http.Header{}}
	})
	return headerStore
}

// NewHeaderStore returns an isolated store, for tests and for hosts that want one per
// worker instead of the global.
func NewHeaderStore() *HeaderStore {
	return &HeaderStore{headers: http.Header{}}
}

// SetHeaders replaces the stored mapping with a deep copy of h.
func (s *HeaderStore) SetHeaders(h http.Header) {
	cp := cloneHeader(h)
	s.mu.Lock()
	s.headers = cp
	s.mu.Unlock()
}

// GetHeaders returns a deep copy of the stored mapping. Never nil.
func (s *HeaderStore) GetHeaders() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHeader(s.headers)
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
