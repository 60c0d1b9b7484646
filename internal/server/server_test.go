package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/engine"
	"github.com/alexisbeaulieu97/signalboard/internal/registry"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/subscriptions"
)

type stubSignal struct {
	meta  signal.Meta
	fetch func(ctx context.Context) (signal.Result, error)
}

func (s *stubSignal) Meta() signal.Meta { return s.meta }

func (s *stubSignal) Fetch(ctx context.Context) (signal.Result, error) {
	if s.fetch != nil {
		return s.fetch(ctx)
	}
	return signal.Result{Status: signal.StatusOK, Value: "fine", TS: time.Now().UTC()}, nil
}

func stubBuilder(id, title string, fetch func(ctx context.Context) (signal.Result, error)) signal.Builder {
	return func() (signal.Signal, error) {
		return &stubSignal{
			meta: signal.Meta{
				ID:           id,
				Title:        title,
				PollInterval: time.Minute,
				Timeout:      time.Second,
			},
			fetch: fetch,
		}, nil
	}
}

func newTestServer(t *testing.T, builders ...signal.Builder) *Server {
	t.Helper()

	if builders == nil {
		builders = []signal.Builder{
			stubBuilder("alpha", "Alpha", nil),
			stubBuilder("beta", "Beta", func(ctx context.Context) (signal.Result, error) {
				return signal.Result{Status: signal.StatusWarn, Value: "wobbly", TS: time.Now().UTC()}, nil
			}),
		}
	}

	reg := registry.New(nil)
	reg.Reload(builders)

	store := cache.NewStore(filepath.Join(t.TempDir(), "cache.json"), nil)
	eng := engine.New(reg, store, nil)

	subs, err := subscriptions.Open(filepath.Join(t.TempDir(), "subs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = subs.Close() })
	require.NoError(t, subs.InitSchema(context.Background()))

	return New(Deps{
		Engine:   eng,
		Registry: reg,
		Cache:    store,
		Subs:     subs,
		Builders: builders,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestSignalsBeforeAnyRefresh(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := doJSON(t, h, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(2), body["count"])
	views := body["signals"].([]any)
	first := views[0].(map[string]any)
	assert.Equal(t, "unknown", first["status"])
	assert.Equal(t, "no data yet", first["value"])
}

func TestRefreshThenSignals(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/refresh?force=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["batch_id"])
	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["ok"])
	assert.Equal(t, float64(1), counts["warn"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	views := body["signals"].([]any)
	statuses := map[string]string{}
	for _, raw := range views {
		v := raw.(map[string]any)
		statuses[v["id"].(string)] = v["status"].(string)
	}
	assert.Equal(t, "ok", statuses["alpha"])
	assert.Equal(t, "warn", statuses["beta"])
}

func TestRefreshConflictWhileBatchInFlight(t *testing.T) {
	release := make(chan struct{})
	slow := signal.Builder(func() (signal.Signal, error) {
		return &stubSignal{
			meta: signal.Meta{ID: "slow", Title: "Slow", PollInterval: time.Minute, Timeout: 10 * time.Second},
			fetch: func(ctx context.Context) (signal.Result, error) {
				<-release
				return signal.Result{Status: signal.StatusOK, Value: "done", TS: time.Now().UTC()}, nil
			},
		}, nil
	})

	s := newTestServer(t, slow)
	h := s.Handler()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		rec, _ := doJSON(t, h, http.MethodPost, "/api/refresh?force=1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}()

	// Wait until the engine reports a batch in flight.
	require.Eventually(t, func() bool {
		return s.engine.Status().Refreshing
	}, time.Second, 5*time.Millisecond)

	rec, body := doJSON(t, h, http.MethodPost, "/api/refresh?force=1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "already in progress")

	close(release)
	<-firstDone
}

func TestRegistryEndpoint(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := doJSON(t, h, http.MethodGet, "/api/registry", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(2), body["count"])
	metas := body["signals"].([]any)
	first := metas[0].(map[string]any)
	assert.Equal(t, "alpha", first["id"])
	assert.Equal(t, float64(60), first["poll_interval_s"])
	assert.Equal(t, float64(1), first["timeout_s"])
}

func TestReloadEndpoint(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(2), body["count"])
	assert.ElementsMatch(t, []any{"alpha", "beta"}, body["signals"].([]any))
}

func TestEngineStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := doJSON(t, h, http.MethodGet, "/api/engine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["refreshing"])
	assert.Nil(t, body["last_summary"])

	_, _ = doJSON(t, h, http.MethodPost, "/api/refresh?force=1", "")

	rec, body = doJSON(t, h, http.MethodGet, "/api/engine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["last_summary"])
}

func TestUserLifecycle(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, body := doJSON(t, h, http.MethodPost, "/api/users", `{"username":"alex"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["created"])

	rec, body = doJSON(t, h, http.MethodPost, "/api/users", `{"username":"alex"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, false, body["created"])

	rec, _ = doJSON(t, h, http.MethodPost, "/api/users", `{"username":"has space"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestSubscriptionFlow(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	_, _ = doJSON(t, h, http.MethodPost, "/api/users", `{"username":"alex"}`)

	// Unknown signal rejected.
	rec, body := doJSON(t, h, http.MethodPost, "/api/users/alex/subscriptions", `{"signal_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "signal not found", body["error"])

	rec, body = doJSON(t, h, http.MethodPost, "/api/users/alex/subscriptions", `{"signal_id":"alpha"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["subscribed"])
	assert.Equal(t, []any{"alpha"}, body["signals"].([]any))

	rec, body = doJSON(t, h, http.MethodGet, "/api/users/alex/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	// Dashboard shows only the subscribed signal.
	rec, body = doJSON(t, h, http.MethodGet, "/api/users/alex/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	only := body["signals"].([]any)[0].(map[string]any)
	assert.Equal(t, "alpha", only["id"])

	rec, body = doJSON(t, h, http.MethodDelete, "/api/users/alex/subscriptions/alpha", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["removed"])
	assert.Empty(t, body["signals"].([]any))
}

func TestUnknownUserIs404(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/ghost/subscriptions"},
		{http.MethodPost, "/api/users/ghost/subscriptions"},
		{http.MethodDelete, "/api/users/ghost/subscriptions/alpha"},
		{http.MethodGet, "/api/users/ghost/dashboard"},
	} {
		rec, body := doJSON(t, h, probe.method, probe.path, `{"signal_id":"alpha"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", probe.method, probe.path)
		assert.Equal(t, "user not found", body["error"])
	}
}

func TestTxtView(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	_, _ = doJSON(t, h, http.MethodPost, "/api/refresh?force=1", "")

	req := httptest.NewRequest(http.MethodGet, "/txt", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	text := rec.Body.String()
	assert.Contains(t, text, "OK")
	assert.Contains(t, text, "alpha")
	assert.Contains(t, text, "WARN")
	assert.Contains(t, text, "wobbly")
}

func TestHomeRendersHTML(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "SignalBoard")
	assert.Contains(t, rec.Body.String(), "Alpha")
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec, _ := doJSON(t, h, http.MethodGet, "/api/signals", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
