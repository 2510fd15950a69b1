package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vnthuan01/law-stand-sub001/internal/agenda"
	"github.com/vnthuan01/law-stand-sub001/internal/models"
	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
)

// appointmentsCachePrefix keys every cached appointment query so a single
// DeletePrefix after a mutation evicts them all. Keys include the caller's
// token hash: each user sees a different slice of the calendar.
const appointmentsCachePrefix = "appointments:"

type RescheduleAppointmentRequest struct {
	StartsAt string `json:"startsAt" validate:"required,datetime3339"`
	Reason   string `json:"reason" validate:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (s *Server) Agenda(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	selected := time.Now().In(s.Cfg.Timezone)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, ok := agenda.ParseDate(raw, s.Cfg.Timezone)
		if !ok {
			log.Warn("agenda: invalid date", slog.String("date", raw))
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
			return
		}
		selected = parsed
	}

	width := 1024
	if raw := r.URL.Query().Get("width"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			log.Warn("agenda: invalid width", slog.String("width", raw))
			transport.WriteError(w, http.StatusBadRequest, "invalid width", nil)
			return
		}
		width = parsed
	}

	token := tokens.Get(r)
	appts, version, err := s.monthAppointments(r.Context(), token, selected.Year(), int(selected.Month()))
	if err != nil {
		writeUpstreamError(w, log, "agenda", err)
		return
	}

	view := s.Planner.View(version, appts, selected, width)
	log.Info("agenda: ok", slog.String("date", view.SelectedDate), slog.Int("days", len(view.Days)))
	transport.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) ListAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	token := tokens.Get(r)
	query := r.URL.Query()

	var (
		appts []models.Appointment
		err   error
	)
	switch {
	case query.Get("date") != "":
		date := query.Get("date")
		if _, ok := agenda.ParseDate(date, s.Cfg.Timezone); !ok {
			log.Warn("appointments list: invalid date", slog.String("date", date))
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
			return
		}
		appts, err = s.cachedByDate(r.Context(), token, date)
	case query.Get("month") != "":
		var year, month int
		if _, scanErr := fmt.Sscanf(query.Get("month"), "%4d-%2d", &year, &month); scanErr != nil || month < 1 || month > 12 {
			log.Warn("appointments list: invalid month", slog.String("month", query.Get("month")))
			transport.WriteError(w, http.StatusBadRequest, "invalid month", nil)
			return
		}
		appts, _, err = s.monthAppointments(r.Context(), token, year, month)
	default:
		transport.WriteError(w, http.StatusBadRequest, "date or month required", nil)
		return
	}
	if err != nil {
		writeUpstreamError(w, log, "appointments list", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"appointments": appts})
}

func (s *Server) ApproveAppointment(w http.ResponseWriter, r *http.Request) {
	s.mutateAppointment(w, r, "appointments approve", func(ctx context.Context, id string) (models.Appointment, error) {
		return s.Upstream.ApproveAppointment(ctx, id)
	})
}

func (s *Server) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req CancelAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("appointments cancel: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("appointments cancel: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}
	s.mutateAppointment(w, r, "appointments cancel", func(ctx context.Context, id string) (models.Appointment, error) {
		return s.Upstream.CancelAppointment(ctx, id, req.Reason)
	})
}

func (s *Server) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req RescheduleAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("appointments reschedule: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("appointments reschedule: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}
	s.mutateAppointment(w, r, "appointments reschedule", func(ctx context.Context, id string) (models.Appointment, error) {
		return s.Upstream.RescheduleAppointment(ctx, id, upstream.RescheduleRequest{
			StartsAt: req.StartsAt,
			Reason:   req.Reason,
		})
	})
}

// mutateAppointment forwards a mutation upstream and, only after it
// completes, evicts every cached appointment query so the next read
// refetches. Failures propagate to the caller; there is no retry.
func (s *Server) mutateAppointment(w http.ResponseWriter, r *http.Request, area string, fn func(ctx context.Context, id string) (models.Appointment, error)) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		log.Warn(area + ": missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	appt, err := fn(ctx, id)
	if err != nil {
		writeUpstreamError(w, log, area, err)
		return
	}

	if err := s.Cache.DeletePrefix(r.Context(), appointmentsCachePrefix); err != nil {
		log.Warn(area+": cache invalidation failed", slog.String("error", err.Error()))
	}

	log.Info(area+": ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, appt)
}

func (s *Server) monthAppointments(ctx context.Context, token string, year, month int) ([]models.Appointment, string, error) {
	key := fmt.Sprintf("%s%s:month:%04d-%02d", appointmentsCachePrefix, tokenDigest(token), year, month)
	if cached, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
		var appts []models.Appointment
		if err := json.Unmarshal(cached, &appts); err == nil {
			return appts, digest(cached), nil
		}
	}

	appts, err := s.Upstream.AppointmentsByMonth(upstream.WithToken(ctx, token), year, month)
	if err != nil {
		return nil, "", err
	}

	payload, err := json.Marshal(appts)
	if err != nil {
		return appts, "", nil
	}
	_ = s.Cache.Set(ctx, key, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	return appts, digest(payload), nil
}

func (s *Server) cachedByDate(ctx context.Context, token, date string) ([]models.Appointment, error) {
	key := appointmentsCachePrefix + tokenDigest(token) + ":date:" + date
	if cached, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
		var appts []models.Appointment
		if err := json.Unmarshal(cached, &appts); err == nil {
			return appts, nil
		}
	}

	appts, err := s.Upstream.AppointmentsByDate(upstream.WithToken(ctx, token), date)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(appts); err == nil {
		_ = s.Cache.Set(ctx, key, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	}
	return appts, nil
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func tokenDigest(token string) string {
	if token == "" {
		return "anon"
	}
	return digest([]byte(token))
}
