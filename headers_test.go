package authgate

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
)

func TestHeadersIsSingleton(t *testing.T) {
	if Headers() != Headers() {
		t.Fatal("Headers must return one process-wide instance")
	}
	if NewHeaderStore() == NewHeaderStore() {
		t.Fatal("NewHeaderStore must return isolated stores")
	}
}

func TestHeaderStoreDefensiveCopy(t *testing.T) {
	s := NewHeaderStore()

	in := http.Header{"Cookie": {"a=1"}, "X-Multi": {"one", "two"}}
	s.SetHeaders(in)

	// Mutating the caller's map after Set must not leak in.
	in.Set("Cookie", "changed")
	in["X-Multi"][0] = "mutated"

	got := s.GetHeaders()
	if got.Get("Cookie") != "a=1" || got.Values("X-Multi")[0] != "one" {
		t.Fatalf("stored headers changed through the input map: %v", got)
	}

	// Mutating the returned map must not affect later reads.
	got.Set("Cookie", "evil")
	got["X-Multi"][1] = "evil"
	got.Add("X-New", "1")

	again := s.GetHeaders()
	if again.Get("Cookie") != "a=1" || again.Values("X-Multi")[1] != "two" || again.Get("X-New") != "" {
		t.Fatalf("stored headers changed through a returned map: %v", again)
	}
}

func TestHeaderStoreOverwritesNotMerges(t *testing.T) {
	s := NewHeaderStore()
	s.SetHeaders(http.Header{"A": {"1"}, "B": {"2"}})
	s.SetHeaders(http.Header{"C": {"3"}})

	got := s.GetHeaders()
	if len(got) != 1 || got.Get("C") != "3" {
		t.Fatalf("expected full overwrite, got %v", got)
	}
}

func TestHeaderStoreNilAndEmpty(t *testing.T) {
	s := NewHeaderStore()
	if got := s.GetHeaders(); got == nil || len(got) != 0 {
		t.Fatalf("fresh store = %v", got)
	}
	s.SetHeaders(http.Header{"A": {"1"}})
	s.SetHeaders(nil)
	if got := s.GetHeaders(); got == nil || len(got) != 0 {
		t.Fatalf("after nil set = %v", got)
	}
}

func TestHeaderStoreConcurrentAccess(t *testing.T) {
	s := NewHeaderStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetHeaders(http.Header{"X-Writer": {strconv.Itoa(i)}})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h := s.GetHeaders()
				h.Set("X-Reader", "local")
			}
		}()
	}
	wg.Wait()

	if s.GetHeaders().Get("X-Reader") != "" {
		t.Fatal("reader mutation leaked into the store")
	}
}

func TestRequestHeadersContext(t *testing.T) {
	if _, ok := RequestHeadersFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry headers")
	}

	h := http.Header{"Cookie": {"a=1"}}
	ctx := WithRequestHeaders(context.Background(), h)
	h.Set("Cookie", "changed")

	got, ok := RequestHeadersFromContext(ctx)
	if !ok || got.Get("Cookie") != "a=1" {
		t.Fatalf("got %v %v", got, ok)
	}
	got.Set("Cookie", "evil")
	again, _ := RequestHeadersFromContext(ctx)
	if again.Get("Cookie") != "a=1" {
		t.Fatal("context headers mutated through a returned copy")
	}
}
