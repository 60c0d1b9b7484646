package board

import (
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/engine"
)

// RefreshCompleteMsg indicates a refresh batch finished.
type RefreshCompleteMsg struct {
	Summary *engine.Summary
}

// RefreshErrorMsg indicates a refresh could not run.
type RefreshErrorMsg struct {
	Err error
}

// TickMsg drives the once-a-second age re-render.
type TickMsg struct {
	Time time.Time
}
