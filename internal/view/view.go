package view

import (
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

// Signal is the render-ready projection of one cached entry joined with its
// registry descriptor. Dashboards consume these; they never trigger fetches.
type Signal struct {
	ID                  string        `json:"id"`
	Title               string        `json:"title"`
	Status              signal.Status `json:"status"`
	Value               string        `json:"value"`
	TS                  time.Time     `json:"ts"`
	AgeS                int           `json:"age_s"`
	Age                 string        `json:"age"`
	Details             string        `json:"details,omitempty"`
	Link                string        `json:"link,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// Build joins registry metas with cached entries in meta order. A signal with
// no cached result renders as unknown rather than being omitted, so the board
// always shows the full registry.
func Build(metas []signal.Meta, entries map[string]cache.Entry, now time.Time) []Signal {
	views := make([]Signal, 0, len(metas))

	for _, meta := range metas {
		entry, ok := entries[meta.ID]
		if !ok || entry.Result == nil {
			views = append(views, Signal{
				ID:     meta.ID,
				Title:  meta.Title,
				Status: signal.StatusUnknown,
				Value:  "no data yet",
				TS:     now,
			})
			continue
		}

		ageS := int(now.Sub(entry.Result.TS).Seconds())
		if ageS < 0 {
			ageS = 0
		}

		views = append(views, Signal{
			ID:                  meta.ID,
			Title:               meta.Title,
			Status:              entry.Result.Status,
			Value:               entry.Result.Value,
			TS:                  entry.Result.TS,
			AgeS:                ageS,
			Age:                 FormatAge(ageS),
			Details:             entry.Result.Details,
			Link:                entry.Result.Link,
			ConsecutiveFailures: entry.ConsecutiveFailures,
		})
	}

	return views
}

// FormatAge renders seconds as a compact age: 37s, 4m, 7h, 3d.
func FormatAge(ageS int) string {
	switch {
	case ageS < 60:
		return fmt.Sprintf("%ds", ageS)
	case ageS < 3600:
		return fmt.Sprintf("%dm", ageS/60)
	case ageS < 86400:
		return fmt.Sprintf("%dh", ageS/3600)
	default:
		return fmt.Sprintf("%dd", ageS/86400)
	}
}
