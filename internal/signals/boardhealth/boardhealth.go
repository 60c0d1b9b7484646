// Package boardhealth provides the built-in liveness signal. It always
// succeeds; a board that can refresh at all shows it green.
package boardhealth

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

type boardHealthSignal struct{}

// New creates the board health signal.
func New() (signal.Signal, error) {
	return &boardHealthSignal{}, nil
}

func (s *boardHealthSignal) Meta() signal.Meta {
	return signal.Meta{
		ID:           "board_health",
		Title:        "Board Health",
		PollInterval: time.Minute,
		Timeout:      time.Second,
	}
}

func (s *boardHealthSignal) Fetch(ctx context.Context) (signal.Result, error) {
	return signal.Result{
		Status:  signal.StatusOK,
		Value:   "board alive",
		TS:      time.Now().UTC(),
		Details: "Signal registry loaded successfully.",
	}, nil
}
