// Package medcheck polls the medication tracker. Taken is ok; not taken
// warns, escalating to bad when the daily reset is close.
package medcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/httpx"
)

// Options configure the medication tracker endpoint.
type Options struct {
	BaseURL string
	// BadWithin escalates "not taken" to bad when the reset is at most this
	// far away. Zero means the 2h default.
	BadWithin time.Duration
}

type medCheckSignal struct {
	baseURL   string
	badWithin time.Duration
	client    *http.Client
	now       func() time.Time
}

// New creates the medication status signal.
func New(opts Options) (signal.Signal, error) {
	badWithin := opts.BadWithin
	if badWithin <= 0 {
		badWithin = 2 * time.Hour
	}
	return &medCheckSignal{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		badWithin: badWithin,
		client:    &http.Client{},
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *medCheckSignal) Meta() signal.Meta {
	return signal.Meta{
		ID:           "med_check_status",
		Title:        "MedCheck",
		PollInterval: 2 * time.Minute,
		Timeout:      1500 * time.Millisecond,
	}
}

type statusPayload struct {
	Taken    bool   `json:"taken"`
	TakenAt  string `json:"taken_at"`
	ResetsAt string `json:"resets_at"`
	Timezone string `json:"timezone"`
}

func (s *medCheckSignal) Fetch(ctx context.Context) (signal.Result, error) {
	url := s.baseURL + "/api/status"

	var data statusPayload
	if err := httpx.GetJSON(ctx, s.client, url, nil, &data); err != nil {
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) {
			res := signal.BadResult(fmt.Sprintf("medcheck HTTP %d", statusErr.Code), statusErr.Status)
			res.Link = url
			return res, nil
		}
		res := signal.BadResult("medcheck unreachable", err.Error())
		res.Link = url
		return res, nil
	}

	resetsAt, err := time.Parse(time.RFC3339, data.ResetsAt)
	if err != nil {
		res := signal.BadResult("medcheck payload invalid", fmt.Sprintf("resets_at: %v", err))
		res.Link = url
		return res, nil
	}
	resetsAt = resetsAt.UTC()

	tzName := data.Timezone
	if tzName == "" {
		tzName = "UTC"
	}

	now := s.now()

	if data.Taken {
		takenAt := now
		if data.TakenAt != "" {
			if parsed, err := time.Parse(time.RFC3339, data.TakenAt); err == nil {
				takenAt = parsed.UTC()
			}
		}
		return signal.Result{
			Status:  signal.StatusOK,
			Value:   "taken ✅",
			TS:      takenAt,
			Details: fmt.Sprintf("taken at %s · resets %s", formatLocal(takenAt, tzName), formatLocal(resetsAt, tzName)),
			Link:    url,
		}, nil
	}

	toReset := resetsAt.Sub(now)
	status := signal.StatusWarn
	if toReset <= s.badWithin {
		status = signal.StatusBad
	}

	return signal.Result{
		Status:  status,
		Value:   "not taken ⚠️",
		TS:      resetsAt, // next meaningful boundary
		Details: fmt.Sprintf("resets %s (in %s)", formatLocal(resetsAt, tzName), formatDuration(toReset)),
		Link:    url,
	}, nil
}

func formatLocal(t time.Time, tzName string) string {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return t.UTC().Format("15:04 UTC")
	}
	return t.In(loc).Format("3:04 PM")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
