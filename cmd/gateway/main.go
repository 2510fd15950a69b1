package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vnthuan01/law-stand-sub001/internal/agenda"
	"github.com/vnthuan01/law-stand-sub001/internal/authz"
	"github.com/vnthuan01/law-stand-sub001/internal/cache"
	"github.com/vnthuan01/law-stand-sub001/internal/config"
	"github.com/vnthuan01/law-stand-sub001/internal/handlers"
	"github.com/vnthuan01/law-stand-sub001/internal/middleware"
	"github.com/vnthuan01/law-stand-sub001/internal/models"
	"github.com/vnthuan01/law-stand-sub001/internal/realtime"
	"github.com/vnthuan01/law-stand-sub001/internal/session"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
	"github.com/vnthuan01/law-stand-sub001/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var cacheStore cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL, time.Duration(cfg.UpstreamTimeoutSec)*time.Second)
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	sessions := session.New(upstreamClient, cacheStore, cacheTTL, logger)

	// The frontend reacts to the login redirect itself; the gateway's part of
	// the contract is making the transition observable.
	unsubscribe := sessions.Subscribe(func(snap session.Snapshot) {
		logger.Info("session: state change", slog.String("state", string(snap.State)))
	})
	defer unsubscribe()

	hub := realtime.Shared(cfg.HubURL, logger)
	defer hub.Stop()

	server := &handlers.Server{
		Cfg:      cfg,
		Upstream: upstreamClient,
		Sessions: sessions,
		Cache:    cacheStore,
		Val:      validation.New(),
		Log:      logger,
		Hub:      hub,
		Planner:  agenda.NewPlanner(cfg.Timezone),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitAuth, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	mutationLimiter := middleware.NewRateLimiter(cfg.RateLimitMutations, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	anyRole := []models.UserRole{models.RoleAdmin, models.RoleUser, models.RoleStaff, models.RoleLawyer}
	staffRoles := []models.UserRole{models.RoleAdmin, models.RoleStaff, models.RoleLawyer}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Session(sessions))

		// The SSE stream is long-lived and stays outside the request timeout.
		api.Group(func(stream chi.Router) {
			stream.Use(authz.Require(middleware.SessionFromRequest, anyRole...))
			stream.Get("/messages/stream", server.StreamMessages)
		})

		api.Group(func(timed chi.Router) {
			timed.Use(chiMiddleware.Timeout(30 * time.Second))

			timed.With(authLimiter.Middleware).Post("/auth/login", server.Login)
			timed.With(authLimiter.Middleware).Post("/auth/register", server.Register)
			timed.Post("/auth/logout", server.Logout)
			timed.Get("/auth/me", server.Me)

			timed.Get("/services", server.ListServices)
			timed.Get("/services/{id}", server.GetService)

			// Provider callbacks and browser redirects are unauthenticated.
			timed.Post("/payments/webhook", server.PaymentWebhook)
			timed.Get("/payments/return", server.PaymentReturn)
			timed.Get("/payments/cancel", server.PaymentCancelRedirect)

			timed.Group(func(authed chi.Router) {
				authed.Use(authz.Require(middleware.SessionFromRequest, anyRole...))
				authed.Get("/agenda", server.Agenda)
				authed.Get("/appointments", server.ListAppointments)
				authed.With(mutationLimiter.Middleware).Post("/appointments/{id}/cancel", server.CancelAppointment)
				authed.With(mutationLimiter.Middleware).Post("/appointments/{id}/reschedule", server.RescheduleAppointment)

				authed.Post("/payments", server.CreatePayment)
				authed.Get("/payments/mine", server.ListMyPayments)
				authed.Get("/payments/order/{orderCode}", server.GetPaymentByOrderCode)
				authed.Get("/payments/{id}", server.GetPayment)
				authed.Post("/payments/{id}/cancel", server.CancelPayment)

				authed.Get("/realtime/connection", server.RealtimeConnection)
			})

			timed.Group(func(staff chi.Router) {
				staff.Use(authz.Require(middleware.SessionFromRequest, staffRoles...))
				staff.With(mutationLimiter.Middleware).Post("/appointments/{id}/approve", server.ApproveAppointment)
			})

			timed.Group(func(admin chi.Router) {
				admin.Use(authz.Require(middleware.SessionFromRequest, models.RoleAdmin))
				admin.Post("/services", server.CreateService)
				admin.Put("/services/{id}", server.UpdateService)
				admin.Delete("/services/{id}", server.DeleteService)

				admin.Get("/users", server.ListUsers)
				admin.Get("/users/{id}", server.GetUser)
				admin.Post("/users", server.CreateUser)
				admin.Post("/users/{id}/activate", server.ActivateUser)
				admin.Post("/users/{id}/deactivate", server.DeactivateUser)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("gateway started", slog.String("addr", cfg.ServerAddr), slog.String("upstream", cfg.UpstreamBaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
