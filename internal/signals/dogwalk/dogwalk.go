// Package dogwalk polls the walk tracker for the most recent walk and grades
// its recency: walked today is ok, yesterday warns, two or more days is bad.
package dogwalk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/httpx"
)

// walkTimeLayout matches the tracker's "date" + "end" fields. The tracker
// reports naive local times; they are treated as UTC until it grows an offset.
const walkTimeLayout = "2006-01-02 15:04"

// Options configure the walk tracker endpoint.
type Options struct {
	BaseURL string
}

type dogWalkSignal struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// New creates the latest dog walk signal.
func New(opts Options) (signal.Signal, error) {
	return &dogWalkSignal{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{},
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *dogWalkSignal) Meta() signal.Meta {
	return signal.Meta{
		ID:           "latest_dog_walk",
		Title:        "Rory: latest walk",
		PollInterval: 2 * time.Minute,
		// mDNS (.local) resolution can take a few seconds on some hosts, so
		// this stays above typical resolver latency.
		Timeout: 6 * time.Second,
	}
}

type walkPayload struct {
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration"`
	Notes    string `json:"notes"`
}

func (s *dogWalkSignal) Fetch(ctx context.Context) (signal.Result, error) {
	url := s.baseURL + "/api/latest"

	var data map[string]any
	if err := httpx.GetJSON(ctx, s.client, url, nil, &data); err != nil {
		res := badFor(err)
		res.Link = url
		return res, nil
	}

	walk, err := parseWalk(data)
	if err != nil {
		res := signal.BadResult("dogwalk payload invalid", fmt.Sprintf("%v. Got keys: %v", err, sortedKeys(data)))
		res.Link = url
		return res, nil
	}

	endTS, err := time.ParseInLocation(walkTimeLayout, walk.Date+" "+walk.End, time.UTC)
	if err != nil {
		res := signal.BadResult("bad walk timestamp", fmt.Sprintf("%v. date=%q end=%q", err, walk.Date, walk.End))
		res.Link = url
		return res, nil
	}

	ageDays := int(s.now().Sub(endTS).Seconds()) / 86400
	if ageDays < 0 {
		ageDays = 0
	}

	var status signal.Status
	switch {
	case ageDays >= 2:
		status = signal.StatusBad
	case ageDays == 1:
		status = signal.StatusWarn
	default:
		status = signal.StatusOK
	}

	value := "walked today"
	if ageDays > 0 {
		value = fmt.Sprintf("%dd since last walk", ageDays)
	}

	details := fmt.Sprintf("%dm (%s–%s)", walk.Duration, walk.Start, walk.End)
	if notes := strings.TrimSpace(walk.Notes); notes != "" {
		details += " — " + notes
	}

	return signal.Result{
		Status:  status,
		Value:   value,
		TS:      endTS, // event time: end of walk, not fetch time
		Details: details,
		Link:    url,
	}, nil
}

func badFor(err error) signal.Result {
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		return signal.BadResult(fmt.Sprintf("dogwalk HTTP %d", statusErr.Code), statusErr.Status)
	}
	return signal.BadResult("dogwalk unreachable", err.Error())
}

// parseWalk validates the exact tracker schema:
// {"date":"YYYY-MM-DD","duration":15,"end":"10:55","notes":"...","start":"10:40"}
func parseWalk(data map[string]any) (walkPayload, error) {
	var walk walkPayload

	date, ok := data["date"].(string)
	if !ok {
		return walk, fmt.Errorf("missing or non-string %q", "date")
	}
	start, ok := data["start"].(string)
	if !ok {
		return walk, fmt.Errorf("missing or non-string %q", "start")
	}
	end, ok := data["end"].(string)
	if !ok {
		return walk, fmt.Errorf("missing or non-string %q", "end")
	}
	duration, ok := data["duration"].(float64)
	if !ok {
		return walk, fmt.Errorf("missing or non-numeric %q", "duration")
	}

	walk.Date = date
	walk.Start = start
	walk.End = end
	walk.Duration = int(duration)
	if notes, ok := data["notes"].(string); ok {
		walk.Notes = notes
	}
	return walk, nil
}

func sortedKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
