package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

func TestFormatAge(t *testing.T) {
	tests := []struct {
		ageS int
		want string
	}{
		{0, "0s"},
		{37, "37s"},
		{59, "59s"},
		{60, "1m"},
		{240, "4m"},
		{3599, "59m"},
		{3600, "1h"},
		{25200, "7h"},
		{86399, "23h"},
		{86400, "1d"},
		{259200, "3d"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAge(tt.ageS))
	}
}

func TestBuildJoinsMetasWithEntries(t *testing.T) {
	now := time.Now().UTC()
	metas := []signal.Meta{
		{ID: "a", Title: "Alpha", PollInterval: time.Minute, Timeout: time.Second},
		{ID: "b", Title: "Beta", PollInterval: time.Minute, Timeout: time.Second},
	}
	entries := map[string]cache.Entry{
		"a": {
			SignalID: "a",
			Result: &signal.Result{
				Status:  signal.StatusOK,
				Value:   "fine",
				TS:      now.Add(-4 * time.Minute),
				Details: "all good",
				Link:    "http://example.test",
			},
			LastAttempt:         now,
			LastSuccess:         now,
			ConsecutiveFailures: 0,
		},
	}

	views := Build(metas, entries, now)
	require.Len(t, views, 2)

	assert.Equal(t, "a", views[0].ID)
	assert.Equal(t, "Alpha", views[0].Title)
	assert.Equal(t, signal.StatusOK, views[0].Status)
	assert.Equal(t, 240, views[0].AgeS)
	assert.Equal(t, "4m", views[0].Age)
	assert.Equal(t, "all good", views[0].Details)

	// Never fetched: rendered as unknown, not omitted.
	assert.Equal(t, "b", views[1].ID)
	assert.Equal(t, signal.StatusUnknown, views[1].Status)
	assert.Equal(t, "no data yet", views[1].Value)
	assert.Equal(t, 0, views[1].AgeS)
}

func TestBuildClampsFutureTimestamps(t *testing.T) {
	now := time.Now().UTC()
	metas := []signal.Meta{{ID: "m", Title: "M", PollInterval: time.Minute, Timeout: time.Second}}
	entries := map[string]cache.Entry{
		"m": {
			SignalID: "m",
			Result:   &signal.Result{Status: signal.StatusWarn, Value: "resets soon", TS: now.Add(2 * time.Hour)},
		},
	}

	views := Build(metas, entries, now)
	require.Len(t, views, 1)
	assert.Equal(t, 0, views[0].AgeS)
}

func TestBuildKeepsMetaOrder(t *testing.T) {
	now := time.Now().UTC()
	metas := []signal.Meta{
		{ID: "z", Title: "Z", PollInterval: time.Minute, Timeout: time.Second},
		{ID: "a", Title: "A", PollInterval: time.Minute, Timeout: time.Second},
	}

	views := Build(metas, nil, now)
	require.Len(t, views, 2)
	assert.Equal(t, "z", views[0].ID)
	assert.Equal(t, "a", views[1].ID)
}
