package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/logger"
	"github.com/alexisbeaulieu97/signalboard/internal/registry"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

// Outcome summarizes one signal's part in a refresh batch.
type Outcome struct {
	ID      string        `json:"id"`
	Status  signal.Status `json:"status,omitempty"`
	Value   string        `json:"value,omitempty"`
	Skipped bool          `json:"skipped,omitempty"`
}

// Summary reports the result of one refresh batch.
type Summary struct {
	BatchID    string        `json:"batch_id"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	OK         int           `json:"ok"`
	Warn       int           `json:"warn"`
	Bad        int           `json:"bad"`
	Unknown    int           `json:"unknown"`
	Skipped    int           `json:"skipped"`
	Signals    []Outcome     `json:"signals"`
	FlushError string        `json:"flush_error,omitempty"`
}

// Status reports the engine's batch bookkeeping for operational tooling.
type Status struct {
	Refreshing  bool      `json:"refreshing"`
	LastStart   time.Time `json:"last_start"`
	LastEnd     time.Time `json:"last_end"`
	LastSummary *Summary  `json:"last_summary,omitempty"`
}

// Engine orchestrates concurrent signal fetches and writes outcomes into the
// cache store. It is the cache's only writer. Dashboards never execute
// signals; they filter the cached result set this engine maintains.
type Engine struct {
	registry *registry.Registry
	cache    *cache.Store
	logger   *logger.Logger

	// batchMu is held for the full duration of a batch. A second RefreshAll
	// while one is in flight is rejected with ErrAlreadyRefreshing rather
	// than queued; overlapping batches would double-count eligibility
	// windows and corrupt last-attempt bookkeeping.
	batchMu sync.Mutex

	stateMu     sync.Mutex
	refreshing  bool
	lastStart   time.Time
	lastEnd     time.Time
	lastSummary *Summary

	now func() time.Time
}

// New creates an engine over the given registry and cache store.
func New(reg *registry.Registry, store *cache.Store, log *logger.Logger) *Engine {
	return &Engine{
		registry: reg,
		cache:    store,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type fetchOutcome struct {
	id        string
	result    signal.Result
	attemptTS time.Time
}

// RefreshAll fetches every eligible registered signal concurrently, writes
// each outcome to the cache, and flushes once at the end of the batch. A
// signal is eligible when force is set, when it has never been attempted, or
// when its poll interval has elapsed since the last attempt. Returns
// ErrAlreadyRefreshing if a batch is already in flight.
func (e *Engine) RefreshAll(ctx context.Context, force bool) (*Summary, error) {
	if !e.batchMu.TryLock() {
		return nil, apperrors.ErrAlreadyRefreshing
	}
	defer e.batchMu.Unlock()

	started := e.now()
	e.setRefreshing(true, started)

	summary := &Summary{
		BatchID: uuid.NewString(),
		Started: started,
	}

	items := e.registry.Items()

	outcomes := make(chan fetchOutcome, len(items))
	var wg sync.WaitGroup

	for id, sig := range items {
		if !force && !e.eligible(id, sig.Meta()) {
			summary.Skipped++
			summary.Signals = append(summary.Signals, Outcome{ID: id, Skipped: true})
			continue
		}

		wg.Add(1)
		go func(id string, sig signal.Signal) {
			defer wg.Done()
			attemptTS := e.now()
			outcomes <- fetchOutcome{
				id:        id,
				result:    e.fetchOne(ctx, id, sig),
				attemptTS: attemptTS,
			}
		}(id, sig)
	}

	wg.Wait()
	close(outcomes)

	for outcome := range outcomes {
		e.cache.Put(outcome.id, outcome.result, outcome.attemptTS)
		summary.Signals = append(summary.Signals, Outcome{
			ID:     outcome.id,
			Status: outcome.result.Status,
			Value:  outcome.result.Value,
		})

		switch outcome.result.Status {
		case signal.StatusOK:
			summary.OK++
		case signal.StatusWarn:
			summary.Warn++
		case signal.StatusBad:
			summary.Bad++
		default:
			summary.Unknown++
		}
	}

	// One flush per batch to bound I/O. Memory stays authoritative if the
	// flush fails; durability is best-effort.
	if err := e.cache.Flush(); err != nil {
		summary.FlushError = err.Error()
		e.logError(err, "cache flush failed")
	}

	ended := e.now()
	summary.Duration = ended.Sub(started)
	e.finishBatch(summary, ended)

	e.logBatch(summary)
	return summary, nil
}

// eligible applies the cadence gate: fetch when no prior attempt exists or
// the poll interval has elapsed.
func (e *Engine) eligible(id string, meta signal.Meta) bool {
	entry, ok := e.cache.Get(id)
	if !ok || entry.LastAttempt.IsZero() {
		return true
	}
	return e.now().Sub(entry.LastAttempt) >= meta.PollInterval
}

// fetchOne runs a single fetch bounded by the signal's timeout. A fetch that
// outlives its deadline is abandoned: its goroutine writes into a buffered
// channel nobody reads, and the batch records a timeout failure instead of
// waiting. Panics and error returns are normalized to bad results; the cache
// never sees a raw failure.
func (e *Engine) fetchOne(ctx context.Context, id string, sig signal.Signal) signal.Result {
	meta := sig.Meta()

	fetchCtx, cancel := context.WithTimeout(ctx, meta.Timeout)
	defer cancel()

	resultCh := make(chan signal.Result, 1)
	go func() {
		resultCh <- safeFetch(fetchCtx, sig)
	}()

	select {
	case result := <-resultCh:
		return normalize(result, e.now())
	case <-fetchCtx.Done():
		return signal.BadResult("timeout", fmt.Sprintf("exceeded %s: %v", meta.Timeout, fetchCtx.Err()))
	}
}

// safeFetch is the failure boundary the contract requires: implementations
// must not panic, but buggy ones might.
func safeFetch(ctx context.Context, sig signal.Signal) (result signal.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = signal.BadResult("fetch panicked", fmt.Sprintf("%v", rec))
		}
	}()

	result, err := sig.Fetch(ctx)
	if err != nil {
		return signal.BadResult("fetch failed", err.Error())
	}
	return result
}

// normalize enforces the result invariants before persistence.
func normalize(result signal.Result, now time.Time) signal.Result {
	if !result.Status.Valid() {
		result.Details = fmt.Sprintf("non-conformant status %q; %s", result.Status, result.Details)
		result.Status = signal.StatusBad
	}
	if result.TS.IsZero() {
		result.TS = now
	}
	return result
}

// Status reports whether a batch is in flight plus last batch bookkeeping.
func (e *Engine) Status() Status {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return Status{
		Refreshing:  e.refreshing,
		LastStart:   e.lastStart,
		LastEnd:     e.lastEnd,
		LastSummary: e.lastSummary,
	}
}

func (e *Engine) setRefreshing(on bool, at time.Time) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.refreshing = on
	if on {
		e.lastStart = at
	}
}

func (e *Engine) finishBatch(summary *Summary, at time.Time) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.refreshing = false
	e.lastEnd = at
	e.lastSummary = summary
}

func (e *Engine) logBatch(summary *Summary) {
	if e.logger == nil {
		return
	}
	e.logger.WithFields(map[string]any{
		"batch":    summary.BatchID,
		"duration": summary.Duration.String(),
		"ok":       summary.OK,
		"warn":     summary.Warn,
		"bad":      summary.Bad,
		"unknown":  summary.Unknown,
		"skipped":  summary.Skipped,
	}).Info("refresh batch complete")
}

func (e *Engine) logError(err error, msg string) {
	if e.logger == nil {
		return
	}
	e.logger.Error(err, msg)
}
