package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vnthuan01/law-stand-sub001/internal/agenda"
	"github.com/vnthuan01/law-stand-sub001/internal/authz"
	"github.com/vnthuan01/law-stand-sub001/internal/cache"
	"github.com/vnthuan01/law-stand-sub001/internal/config"
	"github.com/vnthuan01/law-stand-sub001/internal/middleware"
	"github.com/vnthuan01/law-stand-sub001/internal/models"
	"github.com/vnthuan01/law-stand-sub001/internal/session"
	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
	"github.com/vnthuan01/law-stand-sub001/internal/validation"
)

type fixture struct {
	server      *Server
	router      chi.Router
	listCalls   *int32
	monthAppts  *atomic.Value // json string served for month listings
	approveHits *int32
	paymentReq  *atomic.Value // body of the last upstream payment create
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var listCalls, approveHits int32
	var monthAppts, paymentReq atomic.Value
	monthAppts.Store(`[{"id":"a1","userId":"u1","date":"2026-03-05","startTime":"09:00","status":"pending"}]`)

	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/appointments" && r.Method == http.MethodGet:
			atomic.AddInt32(&listCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"appointments":` + monthAppts.Load().(string) + `}`))
		case strings.HasSuffix(r.URL.Path, "/approve") && r.Method == http.MethodPost:
			atomic.AddInt32(&approveHits, 1)
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"a1","userId":"u1","date":"2026-03-05","startTime":"09:00","status":"approved"}`))
		case strings.HasSuffix(r.URL.Path, "/cancel") && strings.HasPrefix(r.URL.Path, "/appointments/") && r.Method == http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"a1","userId":"u1","date":"2026-03-05","startTime":"09:00","status":"canceled"}`))
		case r.URL.Path == "/payments" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			paymentReq.Store(string(body))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"p1","orderCode":"o1","amount":500000,"currency":"VND","status":"pending","checkoutUrl":"https://pay.example/o1"}`))
		case r.URL.Path == "/auth/login" && r.Method == http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"token":"fresh-token","refreshToken":"fresh-refresh","user":{"id":"u1","role":"User"}}`))
		case r.URL.Path == "/auth/profile":
			// The bearer token picks the profile so tests can act as
			// different roles.
			role := "User"
			if r.Header.Get("Authorization") == "Bearer staff-token" {
				role = "Staff"
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"u1","email":"a@b.c","fullName":"A","role":"` + role + `","isActive":true}`))
		case r.URL.Path == "/payments/webhook":
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"status":"received"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	t.Cleanup(upstreamSrv.Close)

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cfg := &config.Config{
		UpstreamBaseURL:  upstreamSrv.URL,
		FrontendOrigin:   "http://localhost:3000",
		PublicBaseURL:    "http://gateway.local:8080",
		PaymentReturnURL: "http://gateway.local:8080/api/v1/payments/return",
		PaymentCancelURL: "http://gateway.local:8080/api/v1/payments/cancel",
		PaymentResultURL: "http://localhost:3000/payments/result",
		CacheTTLSeconds:  60,
		Timezone:         loc,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cacheStore := cache.NewMemory()
	client := upstream.NewClient(upstreamSrv.URL, 2*time.Second)
	sessions := session.New(client, cacheStore, time.Minute, log)

	server := &Server{
		Cfg:      cfg,
		Upstream: client,
		Sessions: sessions,
		Cache:    cacheStore,
		Val:      validation.New(),
		Log:      log,
		Planner:  agenda.NewPlanner(loc),
	}

	router := chi.NewRouter()
	router.Use(middleware.Session(sessions))
	router.Post("/auth/login", server.Login)
	router.Get("/agenda", server.Agenda)
	router.Get("/appointments", server.ListAppointments)
	router.Post("/appointments/{id}/approve", server.ApproveAppointment)
	router.Post("/payments", server.CreatePayment)
	router.Post("/payments/webhook", server.PaymentWebhook)
	router.Get("/payments/return", server.PaymentReturn)

	return &fixture{
		server:      server,
		router:      router,
		listCalls:   &listCalls,
		monthAppts:  &monthAppts,
		approveHits: &approveHits,
		paymentReq:  &paymentReq,
	}
}

// gatedRouter mirrors the production role gates for the appointment
// mutations: approve behind the staff set, cancel open to any
// authenticated role.
func gatedRouter(f *fixture) chi.Router {
	anyRole := []models.UserRole{models.RoleAdmin, models.RoleUser, models.RoleStaff, models.RoleLawyer}
	staffRoles := []models.UserRole{models.RoleAdmin, models.RoleStaff, models.RoleLawyer}

	router := chi.NewRouter()
	router.Use(middleware.Session(f.server.Sessions))
	router.Group(func(authed chi.Router) {
		authed.Use(authz.Require(middleware.SessionFromRequest, anyRole...))
		authed.Post("/appointments/{id}/cancel", f.server.CancelAppointment)
	})
	router.Group(func(staff chi.Router) {
		staff.Use(authz.Require(middleware.SessionFromRequest, staffRoles...))
		staff.Post("/appointments/{id}/approve", f.server.ApproveAppointment)
	})
	return router
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: tokens.AuthCookie, Value: "tok-1"})
	return req
}

func TestLoginSetsCookiesAndReturnsUser(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"email":"a@b.c","password":"secret","rememberMe":true}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/auth/login", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sawAuth, sawRefresh bool
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case tokens.AuthCookie:
			sawAuth = c.Value == "fresh-token"
		case tokens.RefreshCookie:
			sawRefresh = c.Value == "fresh-refresh"
		}
	}
	if !sawAuth || !sawRefresh {
		t.Fatalf("expected credential cookies, got %+v", rec.Result().Cookies())
	}
}

func TestAgendaBuildsView(t *testing.T) {
	f := newFixture(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/agenda?date=2026-03-15&width=500", nil))
	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view agenda.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.DaysCount != 1 {
		t.Fatalf("expected 1 visible day at width 500, got %d", view.DaysCount)
	}
	if view.SelectedDate != "2026-03-15" || len(view.VisibleDays) != 1 || view.VisibleDays[0] != "2026-03-15" {
		t.Fatalf("unexpected window: %+v", view)
	}
	if len(view.Days) != 1 || view.Days[0].Date != "2026-03-05" {
		t.Fatalf("unexpected agenda days: %+v", view.Days)
	}
}

func TestAgendaRejectsBadDate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(authed(httptest.NewRequest(http.MethodGet, "/agenda?date=15-03-2026", nil)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMutationInvalidatesCachedListings(t *testing.T) {
	f := newFixture(t)

	// Two reads, one upstream fetch: the second is served from cache.
	f.do(authed(httptest.NewRequest(http.MethodGet, "/appointments?month=2026-03", nil)))
	f.do(authed(httptest.NewRequest(http.MethodGet, "/appointments?month=2026-03", nil)))
	if got := atomic.LoadInt32(f.listCalls); got != 1 {
		t.Fatalf("expected 1 upstream fetch before mutation, got %d", got)
	}

	f.monthAppts.Store(`[{"id":"a1","userId":"u1","date":"2026-03-05","startTime":"09:00","status":"approved"}]`)
	rec := f.do(authed(httptest.NewRequest(http.MethodPost, "/appointments/a1/approve", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := atomic.LoadInt32(f.approveHits); got != 1 {
		t.Fatalf("expected 1 approve call, got %d", got)
	}

	// The refetch after the mutation sees the new status.
	rec = f.do(authed(httptest.NewRequest(http.MethodGet, "/appointments?month=2026-03", nil)))
	if got := atomic.LoadInt32(f.listCalls); got != 2 {
		t.Fatalf("expected refetch after mutation, got %d upstream fetches", got)
	}
	if !strings.Contains(rec.Body.String(), `"approved"`) {
		t.Fatalf("expected refreshed status in %s", rec.Body.String())
	}
}

func TestApproveWithoutTokenPropagates401(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/appointments/a1/approve", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 passthrough, got %d", rec.Code)
	}
}

func TestListAppointmentsRequiresDateOrMonth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(authed(httptest.NewRequest(http.MethodGet, "/appointments", nil)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApproveGateRejectsUserRole(t *testing.T) {
	f := newFixture(t)
	router := gatedRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/appointments/a1/approve", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AuthCookie, Value: "user-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for User role, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := atomic.LoadInt32(f.approveHits); got != 0 {
		t.Fatalf("gated request must not reach upstream, got %d calls", got)
	}
}

func TestApproveGateAdmitsStaff(t *testing.T) {
	f := newFixture(t)
	router := gatedRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/appointments/a1/approve", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AuthCookie, Value: "staff-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for Staff role, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelOpenToAnyAuthenticatedRole(t *testing.T) {
	f := newFixture(t)
	router := gatedRouter(f)

	body := strings.NewReader(`{"reason":"schedule conflict"}`)
	req := httptest.NewRequest(http.MethodPost, "/appointments/a1/cancel", body)
	req.AddCookie(&http.Cookie{Name: tokens.AuthCookie, Value: "user-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for User role, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"canceled"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCancelGateRejectsAnonymous(t *testing.T) {
	f := newFixture(t)
	router := gatedRouter(f)

	body := strings.NewReader(`{"reason":"schedule conflict"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments/a1/cancel", body))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a credential, got %d", rec.Code)
	}
}

func TestCreatePaymentSendsGatewayCallbacks(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"appointmentId":"a1","amount":500000,"currency":"VND"}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/payments", body))
	rec := f.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	sent, _ := f.paymentReq.Load().(string)
	if !strings.Contains(sent, `"returnUrl":"http://gateway.local:8080/api/v1/payments/return"`) {
		t.Fatalf("provider returnUrl must be the gateway callback, got %s", sent)
	}
	if !strings.Contains(sent, `"cancelUrl":"http://gateway.local:8080/api/v1/payments/cancel"`) {
		t.Fatalf("provider cancelUrl must be the gateway callback, got %s", sent)
	}
	// The frontend result page is a different address entirely; the provider
	// never sees it.
	if strings.Contains(sent, "localhost:3000") {
		t.Fatalf("frontend result url leaked into the provider request: %s", sent)
	}
}

func TestWebhookForwardedVerbatim(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{"orderCode":"o1"}`))
	rec := f.do(req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected upstream status passthrough, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"received"}` {
		t.Fatalf("expected upstream body passthrough, got %s", rec.Body.String())
	}
}

func TestPaymentReturnRedirectsToFrontend(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/payments/return?orderCode=o1&status=PAID", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "http://localhost:3000/payments/result") {
		t.Fatalf("unexpected redirect target %q", location)
	}
	if !strings.Contains(location, "orderCode=o1") || !strings.Contains(location, "outcome=success") {
		t.Fatalf("redirect must carry the outcome, got %q", location)
	}
}
