package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/signalboard/internal/logger"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

// ReloadSummary reports the outcome of one discovery pass.
type ReloadSummary struct {
	Discovered int                         `json:"discovered"`
	Failed     int                         `json:"failed"`
	Errors     []*apperrors.DiscoveryError `json:"errors,omitempty"`
}

// snapshot is an immutable view of the registry. Reload builds a fresh one
// and swaps the pointer, so readers mid-iteration keep a complete old view.
type snapshot struct {
	byID  map[string]signal.Signal
	metas []signal.Meta
}

// Registry maps signal ids to fetch-capable implementations. Registration is
// compiled in: callers hand Reload a table of builders rather than pointing
// it at a plugin directory.
type Registry struct {
	logger *logger.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// New returns an empty registry.
func New(log *logger.Logger) *Registry {
	return &Registry{
		logger: log,
		snap:   &snapshot{byID: map[string]signal.Signal{}},
	}
}

// Reload runs every builder, validates the resulting signals, and atomically
// replaces the live snapshot. One broken builder never aborts the pass: its
// failure is recorded as a DiscoveryError and discovery continues. On a
// duplicate id the first registration wins and the later one is recorded.
func (r *Registry) Reload(builders []signal.Builder) ReloadSummary {
	next := &snapshot{byID: make(map[string]signal.Signal, len(builders))}
	summary := ReloadSummary{}

	for i, build := range builders {
		sig, err := buildOne(build)
		if err != nil {
			derr := asDiscoveryError(err, fmt.Sprintf("builder[%d]", i))
			summary.Errors = append(summary.Errors, derr)
			r.logWarn(derr)
			continue
		}

		meta := sig.Meta()
		if _, exists := next.byID[meta.ID]; exists {
			derr := apperrors.NewDiscoveryError(meta.ID, "duplicate signal id, first registration wins", nil)
			summary.Errors = append(summary.Errors, derr)
			r.logWarn(derr)
			continue
		}

		next.byID[meta.ID] = sig
		next.metas = append(next.metas, meta)
	}

	sort.Slice(next.metas, func(i, j int) bool { return next.metas[i].ID < next.metas[j].ID })

	r.mu.Lock()
	r.snap = next
	r.mu.Unlock()

	summary.Discovered = len(next.byID)
	summary.Failed = len(summary.Errors)
	return summary
}

// buildOne invokes a builder and validates the contract, converting panics
// into errors so one misbehaving builder cannot take down the pass.
func buildOne(build signal.Builder) (sig signal.Signal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sig = nil
			err = apperrors.NewDiscoveryError("", fmt.Sprintf("builder panicked: %v", rec), nil)
		}
	}()

	sig, err = build()
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, apperrors.NewDiscoveryError("", "builder returned a nil signal", nil)
	}

	meta := sig.Meta()
	if verr := signal.ValidateMeta(meta); verr != nil {
		return nil, apperrors.NewDiscoveryError(meta.ID, "invalid signal metadata", verr)
	}

	return sig, nil
}

// Get retrieves a signal implementation by id.
func (r *Registry) Get(id string) (signal.Signal, error) {
	snap := r.current()
	sig, ok := snap.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("signal", id)
	}
	return sig, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.current().byID[id]
	return ok
}

// List returns every registered descriptor ordered by id, for deterministic
// rendering and testing.
func (r *Registry) List() []signal.Meta {
	snap := r.current()
	out := make([]signal.Meta, len(snap.metas))
	copy(out, snap.metas)
	return out
}

// Items returns id/implementation pairs from the current snapshot.
func (r *Registry) Items() map[string]signal.Signal {
	snap := r.current()
	out := make(map[string]signal.Signal, len(snap.byID))
	for id, sig := range snap.byID {
		out[id] = sig
	}
	return out
}

// IDSet returns the registered ids as a set, used to prune cache orphans.
func (r *Registry) IDSet() map[string]struct{} {
	snap := r.current()
	out := make(map[string]struct{}, len(snap.byID))
	for id := range snap.byID {
		out[id] = struct{}{}
	}
	return out
}

// Len reports the number of registered signals.
func (r *Registry) Len() int {
	return len(r.current().byID)
}

func (r *Registry) current() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

func (r *Registry) logWarn(err *apperrors.DiscoveryError) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(map[string]any{"signal": err.SignalID}).Warn(err.Error())
}

func asDiscoveryError(err error, fallbackID string) *apperrors.DiscoveryError {
	if derr, ok := err.(*apperrors.DiscoveryError); ok {
		if derr.SignalID == "" {
			derr.SignalID = fallbackID
		}
		return derr
	}
	return apperrors.NewDiscoveryError(fallbackID, err.Error(), err)
}
