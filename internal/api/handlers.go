package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/backend"
	"github.com/ops-vnc/adconsole/internal/console"
	"github.com/ops-vnc/adconsole/internal/history"
	"github.com/ops-vnc/adconsole/internal/metrics"
	"github.com/ops-vnc/adconsole/internal/registry"
	"github.com/ops-vnc/adconsole/internal/scheduler"
	"github.com/ops-vnc/adconsole/internal/searchhist"
)

const dateLayout = "2006-01-02"

// startCrawl fires a start attempt. Every outcome, conflict and transport
// failure included, lands in the returned state's message rather than an
// HTTP error: these are expected operator-facing results.
func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	state := s.controller.StartCrawl(r.Context())
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) crawlState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Server) getSchedulerConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Current())
}

func (s *Server) putSchedulerConfig(w http.ResponseWriter, r *http.Request) {
	var req console.SchedulerConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	err := s.sched.Save(r.Context(), req.Interval, req.Unit)
	switch {
	case errors.Is(err, scheduler.ErrInvalidInterval), errors.Is(err, scheduler.ErrInvalidUnit):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "scheduler update failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "scheduler config updated",
			"config":  s.sched.Current(),
		})
	}
}

func (s *Server) historyPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.view.Snapshot())
}

// reloadHistory refetches the ad history. A fetch or decode failure keeps
// the previous in-memory records and reports the error; a response overtaken
// by a newer reload is dropped.
func (s *Server) reloadHistory(w http.ResponseWriter, r *http.Request) {
	seq := s.view.NextLoadSeq()
	records, err := s.ads.FetchAds(r.Context())
	if err != nil {
		s.logger.Warn("history reload failed", zap.Error(err))
		metrics.HistoryReloadObserved("error")
		writeError(w, http.StatusBadGateway, "failed to load history")
		return
	}
	if !s.view.ApplyLoad(seq, records) {
		metrics.HistoryReloadObserved("stale")
		writeJSON(w, http.StatusOK, map[string]any{"stale": true})
		return
	}
	metrics.HistoryReloadObserved("ok")
	writeJSON(w, http.StatusOK, s.view.Snapshot())
}

type searchRequest struct {
	ProfileNames []string `json:"profile_names"`
	Domains      []string `json:"domains"`
	Keyword      string   `json:"keyword"`
	Link         string   `json:"link"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
}

// searchHistory commits a full filter state and records the multi-select
// combinations in the persisted search history.
func (s *Server) searchHistory(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date")
		return
	}

	s.view.SetSelectedProfiles(req.ProfileNames)
	s.view.SetSelectedDomains(req.Domains)
	s.view.EditText(req.Keyword, req.Link)
	s.view.EditDateRange(start, end)
	profiles, domains := s.view.Commit()

	if err := s.searches.Record(searchhist.ProfileKey, profiles); err != nil {
		s.logger.Warn("record profile search failed", zap.Error(err))
	}
	if err := s.searches.Record(searchhist.DomainKey, domains); err != nil {
		s.logger.Warn("record domain search failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, s.view.Snapshot())
}

func (s *Server) setPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.view.SetPage(req.Page)
	writeJSON(w, http.StatusOK, s.view.Snapshot())
}

func (s *Server) setPerPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PerPage int `json:"per_page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	// Non-positive values are ignored rather than rejected.
	s.view.SetPerPage(req.PerPage)
	writeJSON(w, http.StatusOK, s.view.Snapshot())
}

// searchColumns runs the per-column text variant over the loaded records
// without touching the committed filter state: each column takes its own
// comma-separated substring tokens, and "at" restricts matches to timestamps
// within one minute of the given instant.
func (s *Server) searchColumns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileName string `json:"profile_name"`
		Keyword     string `json:"keyword"`
		Link        string `json:"link"`
		Domain      string `json:"domain"`
		Timestamp   string `json:"timestamp"`
		At          string `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var at *time.Time
	if req.At != "" {
		t, err := time.Parse(backend.DisplayTimeLayout, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at")
			return
		}
		at = &t
	}
	items := s.view.FilterColumns(history.TextFilters{
		ProfileName: req.ProfileName,
		Keyword:     req.Keyword,
		Link:        req.Link,
		Domain:      req.Domain,
		Timestamp:   req.Timestamp,
	}, at)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) recentSearches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][][]string{
		"domains":  s.searches.History(searchhist.DomainKey),
		"profiles": s.searches.History(searchhist.ProfileKey),
	})
}

func (s *Server) listKeywords(w http.ResponseWriter, r *http.Request) {
	if err := s.keywords.Refresh(r.Context()); err != nil {
		s.logger.Warn("keyword refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load keywords")
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, s.keywords.Search(q))
		return
	}
	writeJSON(w, http.StatusOK, s.keywords.List())
}

func (s *Server) addKeywords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	created, err := s.keywords.Add(r.Context(), req.Keyword)
	switch {
	case errors.Is(err, registry.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "keyword is required")
	case err != nil:
		s.logger.Warn("keyword create failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to create keywords")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{
			"created":  created,
			"keywords": s.keywords.List(),
		})
	}
}

func (s *Server) updateKeyword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyword_id")
	var req struct {
		NewKeyword string `json:"new_keyword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	err := s.keywords.Update(r.Context(), id, req.NewKeyword)
	switch {
	case errors.Is(err, registry.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "keyword is required")
	case err != nil:
		s.logger.Warn("keyword update failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to update keyword")
	default:
		writeJSON(w, http.StatusOK, s.keywords.List())
	}
}

func (s *Server) deleteKeyword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyword_id")
	if err := s.keywords.Delete(r.Context(), id); err != nil {
		s.logger.Warn("keyword delete failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to delete keyword")
		return
	}
	writeJSON(w, http.StatusOK, s.keywords.List())
}

func (s *Server) deleteKeywordBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		KeywordIDs []string `json:"keyword_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.keywords.DeleteMany(r.Context(), req.KeywordIDs); err != nil {
		s.logger.Warn("keyword batch delete failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to delete keywords")
		return
	}
	writeJSON(w, http.StatusOK, s.keywords.List())
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Refresh(r.Context()); err != nil {
		s.logger.Warn("profile refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load profiles")
		return
	}
	writeJSON(w, http.StatusOK, s.profiles.List())
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req console.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	err := s.profiles.Create(r.Context(), req)
	var conflict *backend.ConflictError
	switch {
	case errors.Is(err, registry.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		// Duplicate name: the backend's detail is the operator-facing message.
		writeError(w, http.StatusConflict, conflict.Error())
	case err != nil:
		s.logger.Warn("profile create failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to create profile")
	default:
		writeJSON(w, http.StatusCreated, s.profiles.List())
	}
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profile_id")
	var req struct {
		UpdatedData map[string]string `json:"updated_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.profiles.Update(r.Context(), id, req.UpdatedData); err != nil {
		s.logger.Warn("profile update failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, s.profiles.List())
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profile_id")
	if err := s.profiles.Delete(r.Context(), id); err != nil {
		s.logger.Warn("profile delete failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to delete profile")
		return
	}
	writeJSON(w, http.StatusOK, s.profiles.List())
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
