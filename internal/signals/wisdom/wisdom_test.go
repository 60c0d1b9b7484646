package wisdom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

var testNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func newTestSignal(t *testing.T, baseURL string) *wisdomSignal {
	t.Helper()

	s, err := New(Options{OllamaBaseURL: baseURL, Model: "llama3", Timezone: "UTC"})
	require.NoError(t, err)

	sage := s.(*wisdomSignal)
	sage.now = func() time.Time { return testNow }
	return sage
}

func TestGeneratedWisdom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req["model"])
		assert.Equal(t, false, req["stream"])

		fmt.Fprint(w, `{"response":" the river keeps moving"}`)
	}))
	t.Cleanup(srv.Close)

	s := newTestSignal(t, srv.URL)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusOK, res.Status)
	assert.Equal(t, "A quiet mind knows that the river keeps moving", res.Value)
	assert.Equal(t, "Daily wisdom", res.Details)
	// Local midnight of the fixed day.
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), res.TS)
}

func TestFallbackWhenModelUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	s := newTestSignal(t, srv.URL)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, signal.StatusOK, res.Status)
	want := fallbackWisdom[dayOrdinal(testNow)%len(fallbackWisdom)]
	assert.Equal(t, want, res.Value)
}

func TestFallbackIsStableWithinADay(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	s := newTestSignal(t, srv.URL)

	first, err := s.Fetch(context.Background())
	require.NoError(t, err)

	s.now = func() time.Time { return testNow.Add(5 * time.Hour) }
	second, err := s.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
}

func TestFallbackWhenResponseUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":"<think>hmm"}`)
	}))
	t.Cleanup(srv.Close)

	s := newTestSignal(t, srv.URL)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, fallbackWisdom, res.Value)
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", "patience wins", "patience wins", false},
		{"quoted", `"patience wins"`, "patience wins", false},
		{"first sentence", "patience wins. And more rambling", "patience wins.", false},
		{"trailing think block", "patience wins <think>reasoning", "patience wins", false},
		{"leading think tag", "<think>reasoning</think>", "", true},
		{"empty", "   ", "", true},
		{"too short", "ok", "", true},
		{"truncated", strings.Repeat("x", 150), strings.Repeat("x", 97) + "...", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanResponse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetaIsValid(t *testing.T) {
	s, err := New(Options{})
	require.NoError(t, err)
	assert.NoError(t, signal.ValidateMeta(s.Meta()))
	assert.Equal(t, 24*time.Hour, s.Meta().PollInterval)
}
