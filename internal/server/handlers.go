package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.database != nil {
		resp["database"] = "ok"
		if err := s.database.HealthCheck(r.Context()); err != nil {
			log.Warn().Err(err).Msg("database health check failed")
			resp["database"] = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuickActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.QuickActionsResponse{
		Welcome:        s.catalog.Welcome,
		QuickActions:   s.catalog.QuickActions,
		BalanceOptions: s.catalog.BalanceOptions,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid, ctl, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	// Submit ignores blank input unless the balance picker is open, where it
	// picks "All Types"
	msgs := ctl.Submit(r.Context(), req.Message)
	if len(msgs) == 0 {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	s.respond(w, sid, ctl, msgs)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid, ctl, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	msgs, err := ctl.SelectDate(r.Context(), req.Field, req.Value)
	switch {
	case errors.Is(err, conversation.ErrUnexpectedSelection):
		s.writeError(w, http.StatusConflict, "this selection is not expected right now")
		return
	case errors.Is(err, conversation.ErrUnknownField):
		s.writeError(w, http.StatusBadRequest, "unknown field "+strconv.Quote(req.Field))
		return
	case errors.Is(err, conversation.ErrInvalidDate):
		s.writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	case err != nil:
		log.Error().Err(err).Str("session", sid).Msg("select failed")
		s.writeError(w, http.StatusInternalServerError, "selection failed")
		return
	}
	s.respond(w, sid, ctl, msgs)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req types.BalanceRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid, ctl, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	s.respond(w, sid, ctl, ctl.RequestBalance(r.Context(), req.LeaveType))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sid, ctl, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	s.respond(w, sid, ctl, ctl.Transcript())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if sid := getSessionID(r); sid != "" {
		s.sessions.Delete(sid)
	}
	ClearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmissions lists the configured user's recorded applications.
func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	if s.databaseStore == nil {
		s.writeError(w, http.StatusNotFound, "submission history is not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.databaseStore.RecentSubmissions(r.Context(), s.cfg.UserID, limit)
	if err != nil {
		log.Error().Err(err).Msg("list submissions")
		s.writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": recs})
}

// decodeBody reads a JSON body; optional bodies may be empty.
func decodeBody(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
