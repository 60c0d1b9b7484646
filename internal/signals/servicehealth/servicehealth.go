// Package servicehealth polls an HTTP health endpoint and maps response
// codes onto board statuses: 2xx ok, other 4xx warn, 5xx or unreachable bad.
package servicehealth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/httpx"
)

// Options configure the health probe.
type Options struct {
	// BaseURL is the service root; the probe hits BaseURL + "/health".
	BaseURL string
}

type serviceHealthSignal struct {
	baseURL string
	client  *http.Client
}

// New creates the webhook router health signal.
func New(opts Options) (signal.Signal, error) {
	return &serviceHealthSignal{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{},
	}, nil
}

func (s *serviceHealthSignal) Meta() signal.Meta {
	return signal.Meta{
		ID:           "webhook-router",
		Title:        "Webhook Router",
		PollInterval: time.Minute,
		Timeout:      1500 * time.Millisecond,
	}
}

func (s *serviceHealthSignal) Fetch(ctx context.Context) (signal.Result, error) {
	url := s.baseURL + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res := signal.BadResult("health check failed", err.Error())
		res.Link = url
		return res, nil
	}
	req.Header.Set("User-Agent", httpx.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		res := signal.BadResult("service unreachable", err.Error())
		res.Link = url
		return res, nil
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return signal.Result{
			Status:  signal.StatusOK,
			Value:   "healthy",
			TS:      time.Now().UTC(),
			Details: fmt.Sprintf("GET %s -> %d", url, code),
			Link:    url,
		}, nil
	case code >= 500:
		res := signal.BadResult(fmt.Sprintf("health HTTP %d", code), resp.Status)
		res.Link = url
		return res, nil
	default:
		return signal.Result{
			Status:  signal.StatusWarn,
			Value:   fmt.Sprintf("health HTTP %d", code),
			TS:      time.Now().UTC(),
			Details: "Non-2xx health response",
			Link:    url,
		}, nil
	}
}
