package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vnthuan01/law-stand-sub001/internal/agenda"
	"github.com/vnthuan01/law-stand-sub001/internal/cache"
	"github.com/vnthuan01/law-stand-sub001/internal/config"
	"github.com/vnthuan01/law-stand-sub001/internal/httpx"
	"github.com/vnthuan01/law-stand-sub001/internal/middleware"
	"github.com/vnthuan01/law-stand-sub001/internal/realtime"
	"github.com/vnthuan01/law-stand-sub001/internal/session"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
	"github.com/vnthuan01/law-stand-sub001/internal/validation"
)

type Server struct {
	Cfg      *config.Config
	Upstream *upstream.Client
	Sessions *session.Service
	Cache    cache.Cache
	Val      *validation.Validator
	Log      *slog.Logger
	Hub      *realtime.Channel
	Planner  *agenda.Planner
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}

func decodeJSON(r *http.Request, v interface{}) error {
	return httpx.DecodeJSON(r.Body, v)
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	return httpx.ValidationDetails(errs)
}

// writeUpstreamError maps an upstream failure onto the gateway response:
// upstream JSON errors pass through with their status, transport failures
// become a 502.
func writeUpstreamError(w http.ResponseWriter, log *slog.Logger, area string, err error) {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		log.Warn(area+": upstream rejected", slog.Int("status", ue.Status), slog.String("message", ue.Message))
		transport.WriteError(w, ue.Status, ue.Message, nil)
		return
	}
	log.Error(area+": upstream unreachable", slog.String("error", err.Error()))
	transport.WriteError(w, http.StatusBadGateway, "upstream unavailable", nil)
}
