package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vnthuan01/law-stand-sub001/internal/httpx"
	"github.com/vnthuan01/law-stand-sub001/internal/models"
	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
)

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	Role     string `json:"role" validate:"required,role"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	filter, err := httpx.ParseUserFilter(r.URL.Query(), 20, 100)
	if err != nil {
		log.Warn("users list: invalid filter", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if filter.Role != "" && !models.UserRole(filter.Role).Valid() {
		log.Warn("users list: invalid role filter", slog.String("role", filter.Role))
		transport.WriteError(w, http.StatusBadRequest, "invalid role", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	page, err := s.Upstream.Users(ctx, filter)
	if err != nil {
		writeUpstreamError(w, log, "users list", err)
		return
	}

	log.Info("users list: ok", slog.Int("count", len(page.Users)))
	transport.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	user, err := s.Upstream.User(ctx, id)
	if err != nil {
		writeUpstreamError(w, log, "users get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, user)
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("users create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("users create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	user, err := s.Upstream.CreateUser(ctx, upstream.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		writeUpstreamError(w, log, "users create", err)
		return
	}

	log.Info("users create: ok", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusCreated, user)
}

func (s *Server) ActivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, "users activate", s.Upstream.ActivateUser)
}

func (s *Server) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	s.setUserActive(w, r, "users deactivate", s.Upstream.DeactivateUser)
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request, area string, fn func(ctx context.Context, id string) (models.User, error)) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	user, err := fn(ctx, id)
	if err != nil {
		writeUpstreamError(w, log, area, err)
		return
	}

	log.Info(area+": ok", slog.String("user_id", id))
	transport.WriteJSON(w, http.StatusOK, user)
}
