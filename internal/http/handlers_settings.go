package http

import (
	"errors"
	"net/http"

	"quy/internal/core"
	"quy/internal/insight"
	"quy/internal/log"
	"quy/internal/services"
)

type colorsResponse struct {
	Colors  core.ColorMap `json:"colors"`
	Presets []string      `json:"presets"`
}

type colorUpdate struct {
	Fund  string `json:"fund"`
	Color string `json:"color"`
}

type syncEndpoint struct {
	Endpoint string `json:"endpoint"`
}

type insightStart struct {
	Started bool `json:"started"`
	insight.State
}

func (s *Server) handleGetColors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, colorsResponse{Colors: s.deps.Store.Colors(), Presets: core.PresetColors})
}

func (s *Server) handlePutColors(w http.ResponseWriter, r *http.Request) {
	var u colorUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}
	fund, err := core.ParseFund(u.Fund)
	if err == nil && fund == core.AllFunds {
		err = core.ErrUnknownFund
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.deps.Store.SetColor(r.Context(), fund, u.Color); err != nil {
		if errors.Is(err, core.ErrInvalidColor) || errors.Is(err, core.ErrUnknownFund) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeInternal(w, r, "could not save color", err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, colorsResponse{Colors: s.deps.Store.Colors(), Presets: core.PresetColors})
}

func (s *Server) handleResetColors(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.ResetColors(r.Context()); err != nil {
		writeInternal(w, r, "could not reset colors", err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, colorsResponse{Colors: s.deps.Store.Colors(), Presets: core.PresetColors})
}

func (s *Server) handleGetSyncEndpoint(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncEndpoint{Endpoint: s.deps.Store.SyncEndpoint()})
}

// handlePutSyncEndpoint stores the endpoint as given. Whether it is usable
// is decided at push time; an empty value disables sync.
func (s *Server) handlePutSyncEndpoint(w http.ResponseWriter, r *http.Request) {
	var body syncEndpoint
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
		return
	}
	if err := s.deps.Store.SetSyncEndpoint(r.Context(), body.Endpoint); err != nil {
		writeInternal(w, r, "could not save sync endpoint", err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, syncEndpoint{Endpoint: s.deps.Store.SyncEndpoint()})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	err := s.deps.Sync.SyncNow(r.Context(), s.deps.Store.Snapshot())
	switch {
	case errors.Is(err, services.ErrNoEndpoint):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		log.FromContext(r.Context()).WarnContext(r.Context(), "Manual sync failed",
			log.FieldError, err, log.FieldOperation, log.OpSync)
		writeJSON(w, http.StatusBadGateway, s.deps.Sync.State())
	default:
		writeJSON(w, http.StatusOK, s.deps.Sync.State())
	}
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sync == nil {
		writeJSON(w, http.StatusOK, services.SyncState{Status: services.SyncIdle})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sync.State())
}

// handleStartInsight answers 202 when an analysis started, 200 without
// starting one for an empty ledger and 409 while one is running.
func (s *Server) handleStartInsight(w http.ResponseWriter, r *http.Request) {
	if s.deps.Insight == nil {
		writeError(w, http.StatusServiceUnavailable, "insight is not configured")
		return
	}
	if s.deps.Insight.Current().Busy {
		writeError(w, http.StatusConflict, "an analysis is already running")
		return
	}
	started := s.deps.Insight.Start(s.deps.Store.Transactions())
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	writeJSON(w, status, insightStart{Started: started, State: s.deps.Insight.Current()})
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	if s.deps.Insight == nil {
		writeError(w, http.StatusServiceUnavailable, "insight is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Insight.Current())
}
