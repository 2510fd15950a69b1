package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
)

const servicesCachePrefix = "services:"

type ServiceRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"`
	Price       int64  `json:"price" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

func (s *Server) ListServices(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	cacheKey := servicesCachePrefix + "all"
	if cached, ok, err := s.Cache.Get(r.Context(), cacheKey); err == nil && ok {
		log.Info("services list: cache hit")
		transport.WriteRawJSON(w, http.StatusOK, cached)
		return
	}

	services, err := s.Upstream.Services(r.Context())
	if err != nil {
		writeUpstreamError(w, log, "services list", err)
		return
	}

	response := map[string]interface{}{"services": services}
	if payload, err := json.Marshal(response); err == nil {
		_ = s.Cache.Set(r.Context(), cacheKey, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	}

	log.Info("services list: ok", slog.Int("count", len(services)))
	transport.WriteJSON(w, http.StatusOK, response)
}

func (s *Server) GetService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	cacheKey := servicesCachePrefix + "id:" + id
	if cached, ok, err := s.Cache.Get(r.Context(), cacheKey); err == nil && ok {
		log.Info("services get: cache hit", slog.String("service_id", id))
		transport.WriteRawJSON(w, http.StatusOK, cached)
		return
	}

	service, err := s.Upstream.Service(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, log, "services get", err)
		return
	}

	if payload, err := json.Marshal(service); err == nil {
		_ = s.Cache.Set(r.Context(), cacheKey, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	}
	transport.WriteJSON(w, http.StatusOK, service)
}

func (s *Server) CreateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	req, ok := s.decodeServiceRequest(w, r, "services create")
	if !ok {
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	service, err := s.Upstream.CreateService(ctx, req)
	if err != nil {
		writeUpstreamError(w, log, "services create", err)
		return
	}

	_ = s.Cache.DeletePrefix(r.Context(), servicesCachePrefix)
	log.Info("services create: ok", slog.String("service_id", service.ID))
	transport.WriteJSON(w, http.StatusCreated, service)
}

func (s *Server) UpdateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}
	req, ok := s.decodeServiceRequest(w, r, "services update")
	if !ok {
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	service, err := s.Upstream.UpdateService(ctx, id, req)
	if err != nil {
		writeUpstreamError(w, log, "services update", err)
		return
	}

	_ = s.Cache.DeletePrefix(r.Context(), servicesCachePrefix)
	log.Info("services update: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, service)
}

func (s *Server) DeleteService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	if err := s.Upstream.DeleteService(ctx, id); err != nil {
		writeUpstreamError(w, log, "services delete", err)
		return
	}

	_ = s.Cache.DeletePrefix(r.Context(), servicesCachePrefix)
	log.Info("services delete: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) decodeServiceRequest(w http.ResponseWriter, r *http.Request, area string) (upstream.ServiceRequest, bool) {
	log := s.logWithRequest(r)
	var req ServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn(area + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return upstream.ServiceRequest{}, false
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn(area + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return upstream.ServiceRequest{}, false
	}
	return upstream.ServiceRequest{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Currency:    req.Currency,
	}, true
}
