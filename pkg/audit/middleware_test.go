package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcshop/configurator/pkg/authz"
)

type recordingAppender struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (a *recordingAppender) Append(_ context.Context, ev *Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return a.err
}

func auditedHandler(store Appender, cfg *AuditConfig, status int) http.Handler {
	h := AuditMiddleware(store, cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	return middleware.RequestID(authz.IdentityMiddleware()(h))
}

func TestAuditMiddleware_RecordsMutation(t *testing.T) {
	store := &recordingAppender{}
	h := auditedHandler(store, DefaultAuditConfig(), http.StatusCreated)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c-1/items", nil)
	req.Header.Set("X-Remote-User", "alice")
	req.Header.Set("X-Remote-Group", "staff")
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "alice", ev.Actor)
	assert.Equal(t, "carts", ev.Resource)
	assert.Equal(t, "c-1", ev.ResourceID)
	assert.Equal(t, "reserve", ev.Action)
	assert.Equal(t, OutcomeSuccess, ev.Outcome)
	assert.Equal(t, http.StatusCreated, ev.StatusCode)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.NotEmpty(t, ev.RequestID)
	assert.Equal(t, http.MethodPost, ev.Metadata["method"])
	assert.Equal(t, []string{"staff"}, ev.Metadata["groups"])
}

func TestAuditMiddleware_CorrelationDefaultsToRequestID(t *testing.T) {
	store := &recordingAppender{}
	h := auditedHandler(store, DefaultAuditConfig(), http.StatusNoContent)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/v1/builds/b-9", nil))

	require.Len(t, store.events, 1)
	assert.Equal(t, store.events[0].RequestID, store.events[0].CorrelationID)
	assert.Equal(t, authz.Anonymous, store.events[0].Actor)
}

func TestAuditMiddleware_SkipsReads(t *testing.T) {
	store := &recordingAppender{}
	h := auditedHandler(store, DefaultAuditConfig(), http.StatusOK)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/builds"},
		{http.MethodPost, "/api/v1/compatibility:check"},
		{http.MethodGet, "/healthz"},
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
	}
	assert.Empty(t, store.events)
}

func TestAuditMiddleware_DeniedRespectsConfig(t *testing.T) {
	store := &recordingAppender{}
	cfg := &AuditConfig{Enabled: true, LogDenied: false}
	h := auditedHandler(store, cfg, http.StatusForbidden)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/catalog/rules", nil))
	assert.Empty(t, store.events)

	cfg.LogDenied = true
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/catalog/rules", nil))
	require.Len(t, store.events, 1)
	assert.Equal(t, OutcomeDenied, store.events[0].Outcome)
}

func TestAuditMiddleware_DisabledSkips(t *testing.T) {
	store := &recordingAppender{}
	h := auditedHandler(store, &AuditConfig{Enabled: false}, http.StatusCreated)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/builds", nil))
	assert.Empty(t, store.events)

	// A nil store passes requests through untouched.
	rec := httptest.NewRecorder()
	auditedHandler(nil, DefaultAuditConfig(), http.StatusCreated).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/builds", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuditMiddleware_AppendErrorDoesNotFailRequest(t *testing.T) {
	store := &recordingAppender{err: errors.New("db down")}
	rec := httptest.NewRecorder()
	auditedHandler(store, DefaultAuditConfig(), http.StatusCreated).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/builds", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.events, 1)
}
