package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
	"github.com/vnthuan01/law-stand-sub001/internal/transport"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
)

type CreatePaymentRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
}

type CancelPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (s *Server) CreatePayment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req CreatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("payments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("payments create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	payment, err := s.Upstream.CreatePayment(ctx, upstream.PaymentRequest{
		AppointmentID: req.AppointmentID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		ReturnURL:     s.Cfg.PaymentReturnURL,
		CancelURL:     s.Cfg.PaymentCancelURL,
	})
	if err != nil {
		writeUpstreamError(w, log, "payments create", err)
		return
	}

	log.Info("payments create: ok", slog.String("payment_id", payment.ID), slog.String("order_code", payment.OrderCode))
	transport.WriteJSON(w, http.StatusCreated, payment)
}

func (s *Server) GetPayment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	payment, err := s.Upstream.Payment(ctx, id)
	if err != nil {
		writeUpstreamError(w, log, "payments get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, payment)
}

func (s *Server) GetPaymentByOrderCode(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	orderCode := chi.URLParam(r, "orderCode")
	if orderCode == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing order code", nil)
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	payment, err := s.Upstream.PaymentByOrderCode(ctx, orderCode)
	if err != nil {
		writeUpstreamError(w, log, "payments get by order", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, payment)
}

func (s *Server) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	payments, err := s.Upstream.MyPayments(ctx)
	if err != nil {
		writeUpstreamError(w, log, "payments mine", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

func (s *Server) CancelPayment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}
	var req CancelPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("payments cancel: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("payments cancel: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx := upstream.WithToken(r.Context(), tokens.Get(r))
	payment, err := s.Upstream.CancelPayment(ctx, id, req.Reason)
	if err != nil {
		writeUpstreamError(w, log, "payments cancel", err)
		return
	}

	log.Info("payments cancel: ok", slog.String("payment_id", id))
	transport.WriteJSON(w, http.StatusOK, payment)
}

// PaymentWebhook forwards the provider callback upstream byte-for-byte so
// the upstream can verify the signature over the original body.
func (s *Server) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Warn("payments webhook: read error")
		transport.WriteError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}

	status, echoed, err := s.Upstream.Forward(r.Context(), http.MethodPost, "/payments/webhook", r.Header, body)
	if err != nil {
		writeUpstreamError(w, log, "payments webhook", err)
		return
	}

	log.Info("payments webhook: forwarded", slog.Int("status", status))
	transport.WriteRawJSON(w, status, echoed)
}

// PaymentReturn and PaymentCancelRedirect are the URLs the payment provider
// sends browsers back to; both bounce to the frontend's result page,
// carrying the outcome as query params.
func (s *Server) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	s.redirectToFrontend(w, r, s.Cfg.PaymentResultURL, "success")
}

func (s *Server) PaymentCancelRedirect(w http.ResponseWriter, r *http.Request) {
	s.redirectToFrontend(w, r, s.Cfg.PaymentResultURL, "canceled")
}

func (s *Server) redirectToFrontend(w http.ResponseWriter, r *http.Request, base, outcome string) {
	log := s.logWithRequest(r)
	target, err := url.Parse(base)
	if err != nil {
		log.Error("payments redirect: bad frontend url", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "redirect misconfigured", nil)
		return
	}

	query := target.Query()
	query.Set("outcome", outcome)
	if code := r.URL.Query().Get("orderCode"); code != "" {
		query.Set("orderCode", code)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query.Set("status", status)
	}
	target.RawQuery = query.Encode()

	log.Info("payments redirect", slog.String("outcome", outcome))
	http.Redirect(w, r, target.String(), http.StatusFound)
}
