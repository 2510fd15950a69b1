package handlers

import (
	"net/http"

	"github.com/vnthuan01/law-stand-sub001/internal/authz"
	"github.com/vnthuan01/law-stand-sub001/internal/middleware"
	"github.com/vnthuan01/law-stand-sub001/internal/session"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
)

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req session.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("auth login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("auth login: validation error")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	snap, err := s.Sessions.Login(r.Context(), w, r, req)
	if err != nil {
		writeUpstreamError(w, log, "auth login", err)
		return
	}

	log.Info("auth login: ok")
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": snap.User})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req session.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("auth register: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("auth register: validation error")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	snap, err := s.Sessions.Register(r.Context(), w, r, req)
	if err != nil {
		writeUpstreamError(w, log, "auth register", err)
		return
	}

	log.Info("auth register: ok")
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": snap.User})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	if err := s.Sessions.Logout(r.Context(), w, r); err != nil {
		// Credentials are already cleared; report the upstream failure anyway.
		writeUpstreamError(w, log, "auth logout", err)
		return
	}
	log.Info("auth logout: ok")
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	auth := authz.Authorize(middleware.SessionFromRequest(r))
	if !auth.IsAuthenticated {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": auth.User})
}
