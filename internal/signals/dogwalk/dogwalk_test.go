package dogwalk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

var testNow = time.Date(2026, 1, 25, 12, 0, 0, 0, time.UTC)

func newTestSignal(t *testing.T, payload string) *dogWalkSignal {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(srv.Close)

	s, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	walker := s.(*dogWalkSignal)
	walker.now = func() time.Time { return testNow }
	return walker
}

func TestWalkedTodayIsOK(t *testing.T) {
	s := newTestSignal(t, `{"date":"2026-01-25","start":"10:40","end":"10:55","duration":15,"notes":"Snowstorm"}`)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusOK, res.Status)
	assert.Equal(t, "walked today", res.Value)
	assert.Equal(t, "15m (10:40–10:55) — Snowstorm", res.Details)
	// Event time, not fetch time.
	assert.Equal(t, time.Date(2026, 1, 25, 10, 55, 0, 0, time.UTC), res.TS)
}

func TestWalkedYesterdayWarns(t *testing.T) {
	s := newTestSignal(t, `{"date":"2026-01-24","start":"09:00","end":"09:20","duration":20}`)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusWarn, res.Status)
	assert.Equal(t, "1d since last walk", res.Value)
	assert.Equal(t, "20m (09:00–09:20)", res.Details)
}

func TestStaleWalkIsBad(t *testing.T) {
	s := newTestSignal(t, `{"date":"2026-01-22","start":"09:00","end":"09:20","duration":20}`)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusBad, res.Status)
	assert.Equal(t, "3d since last walk", res.Value)
}

func TestInvalidPayloadIsBad(t *testing.T) {
	s := newTestSignal(t, `{"date":"2026-01-25","start":"10:40"}`)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusBad, res.Status)
	assert.Equal(t, "dogwalk payload invalid", res.Value)
	assert.Contains(t, res.Details, "end")
}

func TestBadTimestampIsBad(t *testing.T) {
	s := newTestSignal(t, `{"date":"not-a-date","start":"10:40","end":"10:55","duration":15}`)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusBad, res.Status)
	assert.Equal(t, "bad walk timestamp", res.Value)
}

func TestHTTPErrorIsBad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	s, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signal.StatusBad, res.Status)
	assert.Equal(t, "dogwalk HTTP 502", res.Value)
}

func TestUnreachableTrackerIsBad(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	s, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signal.StatusBad, res.Status)
	assert.Equal(t, "dogwalk unreachable", res.Value)
}

func TestMetaIsValid(t *testing.T) {
	s, err := New(Options{BaseURL: "http://localhost:5010"})
	require.NoError(t, err)
	assert.NoError(t, signal.ValidateMeta(s.Meta()))
}
