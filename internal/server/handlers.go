package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexisbeaulieu97/signalboard/internal/engine"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

type metaView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	PollIntervalS int    `json:"poll_interval_s"`
	TimeoutS      int    `json:"timeout_s"`
}

func toMetaView(m signal.Meta) metaView {
	return metaView{
		ID:            m.ID,
		Title:         m.Title,
		PollIntervalS: int(m.PollInterval.Seconds()),
		TimeoutS:      int(m.Timeout.Seconds()),
	}
}

type summaryView struct {
	OK         bool           `json:"ok"`
	BatchID    string         `json:"batch_id"`
	DurationMS int64          `json:"duration_ms"`
	Counts     map[string]int `json:"counts"`
	Skipped    int            `json:"skipped"`
	Signals    []outcomeView  `json:"signals"`
	FlushError string         `json:"flush_error,omitempty"`
}

type outcomeView struct {
	ID      string `json:"id"`
	Status  string `json:"status,omitempty"`
	Note    string `json:"note,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

func toSummaryView(summary *engine.Summary) *summaryView {
	if summary == nil {
		return nil
	}

	outcomes := make([]outcomeView, 0, len(summary.Signals))
	for _, outcome := range summary.Signals {
		outcomes = append(outcomes, outcomeView{
			ID:      outcome.ID,
			Status:  outcome.Status.String(),
			Note:    outcome.Value,
			Skipped: outcome.Skipped,
		})
	}

	return &summaryView{
		OK:         summary.FlushError == "",
		BatchID:    summary.BatchID,
		DurationMS: summary.Duration.Milliseconds(),
		Counts: map[string]int{
			"ok":      summary.OK,
			"warn":    summary.Warn,
			"bad":     summary.Bad,
			"unknown": summary.Unknown,
		},
		Skipped:    summary.Skipped,
		Signals:    outcomes,
		FlushError: summary.FlushError,
	}
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	views := s.views()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(views),
		"signals": views,
	})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	metas := s.registry.List()
	out := make([]metaView, 0, len(metas))
	for _, meta := range metas {
		out = append(out, toMetaView(meta))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"signals": out,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"

	summary, err := s.engine.RefreshAll(r.Context(), force)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyRefreshing) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	summary := s.registry.Reload(s.builders)

	// Entries for signals that no longer exist are dropped on reload.
	s.cache.Prune(s.registry.IDSet())

	ids := make([]string, 0)
	for _, meta := range s.registry.List() {
		ids = append(ids, meta.ID)
	}

	errs := make([]string, 0, len(summary.Errors))
	for _, discErr := range summary.Errors {
		errs = append(errs, discErr.Error())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      summary.Failed == 0,
		"count":   summary.Discovered,
		"failed":  summary.Failed,
		"errors":  errs,
		"signals": ids,
	})
}

func (s *Server) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshing":   status.Refreshing,
		"last_start":   status.LastStart,
		"last_end":     status.LastEnd,
		"last_summary": toSummaryView(status.LastSummary),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.subs.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(users),
		"users": users,
	})
}

type createUserRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.subs.CreateUser(r.Context(), req.Username)
	if err != nil {
		var valErr *apperrors.ValidationError
		if errors.As(err, &valErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"username": req.Username,
		"created":  created,
	})
}

// requireUser returns false after writing a 404 when username has no account.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request, username string) bool {
	exists, err := s.subs.UserExists(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	if !exists {
		writeError(w, http.StatusNotFound, "user not found")
		return false
	}
	return true
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !s.requireUser(w, r, username) {
		return
	}

	ids, err := s.subs.ListSubscriptions(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username": username,
		"signals":  ids,
		"count":    len(ids),
	})
}

type subscribeRequest struct {
	SignalID string `json:"signal_id"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !s.requireUser(w, r, username) {
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Subscriptions point at live registry entries only.
	if !s.registry.Has(req.SignalID) {
		writeError(w, http.StatusNotFound, "signal not found")
		return
	}

	created, err := s.subs.Subscribe(r.Context(), username, req.SignalID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids, err := s.subs.ListSubscriptions(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username":   username,
		"signal_id":  req.SignalID,
		"subscribed": created,
		"signals":    ids,
	})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !s.requireUser(w, r, username) {
		return
	}
	signalID := r.PathValue("signal_id")

	removed, err := s.subs.Unsubscribe(r.Context(), username, signalID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids, err := s.subs.ListSubscriptions(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username":  username,
		"signal_id": signalID,
		"removed":   removed,
		"signals":   ids,
	})
}

func (s *Server) handleUserDashboard(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !s.requireUser(w, r, username) {
		return
	}

	ids, err := s.subs.ListSubscriptions(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	views := s.viewsFor(keep)
	writeJSON(w, http.StatusOK, map[string]any{
		"username": username,
		"count":    len(views),
		"signals":  views,
	})
}
