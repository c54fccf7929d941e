package cache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCacheMiddleware(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"GETCachedOnSecondCall", testGETCachedOnSecondCall},
		{"POSTNotCached", testPOSTNotCached},
		{"Non200NotCached", testNon200NotCached},
		{"DifferentQueriesCachedSeparately", testDifferentQueriesCachedSeparately},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func countingHandler(calls *int, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func serveGET(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func testGETCachedOnSecondCall(t *testing.T) {
	calls := 0
	wrapped := CacheMiddleware(NewLRUCache(10, 5*time.Second))(countingHandler(&calls, http.StatusOK, `{"types":[]}`))

	rec1 := serveGET(wrapped, "/component-types")
	if calls != 1 {
		t.Fatalf("expected handler called once, got %d", calls)
	}
	if rec1.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected X-Cache: MISS, got %q", rec1.Header().Get("X-Cache"))
	}

	rec2 := serveGET(wrapped, "/component-types")
	if calls != 1 {
		t.Fatalf("expected handler not called again, got %d", calls)
	}
	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected X-Cache: HIT, got %q", rec2.Header().Get("X-Cache"))
	}
	if ct := rec2.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected cached content type, got %q", ct)
	}
	body, _ := io.ReadAll(rec2.Result().Body)
	if string(body) != `{"types":[]}` {
		t.Fatalf("expected cached body, got %q", string(body))
	}
}

func testPOSTNotCached(t *testing.T) {
	calls := 0
	wrapped := CacheMiddleware(NewLRUCache(10, 5*time.Second))(countingHandler(&calls, http.StatusCreated, `{}`))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/component-types", nil))
		if rec.Header().Get("X-Cache") != "" {
			t.Fatal("POST responses must not carry X-Cache")
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func testNon200NotCached(t *testing.T) {
	calls := 0
	wrapped := CacheMiddleware(NewLRUCache(10, 5*time.Second))(countingHandler(&calls, http.StatusNotFound, `{"error":"x"}`))

	serveGET(wrapped, "/component-types/9")
	rec := serveGET(wrapped, "/component-types/9")
	if calls != 2 {
		t.Fatalf("expected 2 calls for non-200, got %d", calls)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func testDifferentQueriesCachedSeparately(t *testing.T) {
	calls := 0
	wrapped := CacheMiddleware(NewLRUCache(10, 5*time.Second))(countingHandler(&calls, http.StatusOK, `{}`))

	serveGET(wrapped, "/rules?sourceTypeId=1")
	serveGET(wrapped, "/rules?sourceTypeId=2")
	serveGET(wrapped, "/rules?sourceTypeId=1")
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
