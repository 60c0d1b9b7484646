// Package wisdom produces one short aphorism per day. It asks a local Ollama
// model first and falls back to a curated list seeded by the date, so the
// board shows the same line all day even across restarts.
package wisdom

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

const promptPrefix = "A quiet mind knows that"

// fallbackWisdom covers the days Ollama is unreachable or rambling.
var fallbackWisdom = []string{
	"Sometimes the best action is floating peacefully",
	"Grass is always better when shared with friends",
	"Worry less, soak more",
	"The water will be warm when you're ready",
	"Hot springs cure most troubles",
	"There's always time for a nap in the sun",
	"Good company makes any day better",
	"Let the current carry your concerns away",
	"Patience and sunshine solve many problems",
	"The world looks better from a warm bath",
}

// Options configure the model endpoint and the local day boundary.
type Options struct {
	OllamaBaseURL string
	Model         string
	// Timezone names the location whose calendar day selects the quote.
	Timezone string
}

type wisdomSignal struct {
	baseURL  string
	model    string
	timezone string
	client   *http.Client
	now      func() time.Time
}

// New creates the daily wisdom signal.
func New(opts Options) (signal.Signal, error) {
	model := opts.Model
	if model == "" {
		model = "llama3"
	}
	return &wisdomSignal{
		baseURL:  strings.TrimRight(opts.OllamaBaseURL, "/"),
		model:    model,
		timezone: opts.Timezone,
		client:   &http.Client{},
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *wisdomSignal) Meta() signal.Meta {
	return signal.Meta{
		ID:           "wisdom",
		Title:        "Daily Wisdom",
		PollInterval: 24 * time.Hour,
		Timeout:      15 * time.Second,
	}
}

func (s *wisdomSignal) Fetch(ctx context.Context) (signal.Result, error) {
	today := s.todayLocal()
	// Timestamp at local midnight, expressed in UTC, so the age reads as
	// "hours into the day" rather than "time since fetch".
	ts := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	sentence, err := s.generate(ctx)
	if err != nil {
		sentence = fallbackWisdom[dayOrdinal(today)%len(fallbackWisdom)]
	}

	return signal.Result{
		Status:  signal.StatusOK,
		Value:   sentence,
		TS:      ts,
		Details: "Daily wisdom",
	}, nil
}

func (s *wisdomSignal) todayLocal() time.Time {
	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		loc = time.UTC
	}
	return s.now().In(loc)
}

func dayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Raw     bool           `json:"raw"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (s *wisdomSignal) generate(ctx context.Context) (string, error) {
	url := s.baseURL + "/api/generate"

	body := generateRequest{
		Model:  s.model,
		Prompt: promptPrefix,
		Stream: false,
		Raw:    true,
		Options: map[string]any{
			"temperature": 0.8,
			"num_predict": 40,
			"stop":        []string{".", "!", "?", "\n"},
		},
	}

	var resp generateResponse
	if err := httpx.PostJSON(ctx, s.client, url, body, &resp); err != nil {
		return "", err
	}

	cleaned, err := cleanResponse(resp.Response)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(strings.ToLower(cleaned), "a quiet") {
		cleaned = promptPrefix + " " + cleaned
	}
	return cleaned, nil
}

// cleanResponse strips thinking tags, quotes, and trailing sentences, and
// rejects output too short to be a usable aphorism.
func cleanResponse(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	if raw == "" || strings.HasPrefix(lower, "<think>") {
		return "", errors.New("model returned thinking tags or empty response")
	}

	if idx := strings.Index(lower, "<think>"); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	if idx := strings.Index(strings.ToLower(raw), "</think>"); idx >= 0 {
		raw = strings.TrimSpace(raw[idx+len("</think>"):])
	}

	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}

	for _, ender := range []string{". ", "! ", "? "} {
		if idx := strings.Index(raw, ender); idx >= 0 {
			raw = raw[:idx+1]
			break
		}
	}

	cleaned := strings.TrimSpace(raw)
	if len(cleaned) > 100 {
		cleaned = cleaned[:97] + "..."
	}
	if len(cleaned) < 5 {
		return "", fmt.Errorf("response too short after cleaning: %q", cleaned)
	}
	return cleaned, nil
}
