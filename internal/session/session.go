// Package session resolves the browser's credential into a user snapshot and
// runs the login/register/logout flows against the upstream auth endpoints.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vnthuan01/law-stand-sub001/internal/cache"
	"github.com/vnthuan01/law-stand-sub001/internal/models"
	"github.com/vnthuan01/law-stand-sub001/internal/tokens"
	"github.com/vnthuan01/law-stand-sub001/internal/upstream"
)

type State string

const (
	StateAnonymous     State = "anonymous"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
)

// Snapshot is the session's current belief about the user. User is non-nil
// exactly when State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *models.User
}

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

func Anonymous() Snapshot {
	return Snapshot{State: StateAnonymous}
}

func Loading() Snapshot {
	return Snapshot{State: StateLoading}
}

// Backend is the slice of the upstream client the session flows need.
type Backend interface {
	Login(ctx context.Context, req upstream.LoginRequest) (upstream.AuthResponse, error)
	Register(ctx context.Context, req upstream.RegisterRequest) (upstream.AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (models.User, error)
}

type Service struct {
	backend Backend
	cache   cache.Cache
	ttl     time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func New(backend Backend, c cache.Cache, ttl time.Duration, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{
		backend: backend,
		cache:   c,
		ttl:     ttl,
		log:     log,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Resolve turns a stored token into a snapshot. The profile fetch is a single
// attempt: any failure resolves to anonymous and is not surfaced.
func (s *Service) Resolve(ctx context.Context, token string) Snapshot {
	if token == "" {
		return Anonymous()
	}

	key := profileKey(token)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var user models.User
		if err := json.Unmarshal(cached, &user); err == nil {
			return Snapshot{State: StateAuthenticated, User: &user}
		}
	}

	return s.fetch(ctx, token)
}

func (s *Service) fetch(ctx context.Context, token string) Snapshot {
	user, err := s.backend.Profile(upstream.WithToken(ctx, token))
	if err != nil {
		if !upstream.IsUnauthorized(err) {
			s.log.Warn("session: profile fetch failed", slog.String("error", err.Error()))
		}
		return Anonymous()
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, profileKey(token), payload, s.ttl)
	}
	return Snapshot{State: StateAuthenticated, User: &user}
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty"`
}

// Login authenticates upstream, persists the returned credentials honoring
// rememberMe, evicts any cached profile for the new token and refetches it.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, req LoginRequest) (Snapshot, error) {
	resp, err := s.backend.Login(ctx, upstream.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		return Anonymous(), err
	}

	tokens.Set(w, r, resp.Token, req.RememberMe)
	if resp.RefreshToken != "" {
		tokens.SetRefresh(w, r, resp.RefreshToken, req.RememberMe)
	}

	_ = s.cache.Delete(ctx, profileKey(resp.Token))
	snap := s.fetch(ctx, resp.Token)
	s.notify(snap)
	return snap, nil
}

// Register follows the same persistence contract as Login but the token is
// always session-scoped.
func (s *Service) Register(ctx context.Context, w http.ResponseWriter, r *http.Request, req RegisterRequest) (Snapshot, error) {
	resp, err := s.backend.Register(ctx, upstream.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return Anonymous(), err
	}

	tokens.Set(w, r, resp.Token, false)
	if resp.RefreshToken != "" {
		tokens.SetRefresh(w, r, resp.RefreshToken, false)
	}

	_ = s.cache.Delete(ctx, profileKey(resp.Token))
	snap := s.fetch(ctx, resp.Token)
	s.notify(snap)
	return snap, nil
}

// Logout calls the upstream endpoint and always clears the local credentials
// and cached profile, even when the upstream call fails: a browser must never
// be left holding a credential the gateway cannot revoke. The upstream error,
// if any, is still returned to the caller.
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token := tokens.Get(r)
	var err error
	if token != "" {
		err = s.backend.Logout(upstream.WithToken(ctx, token))
	}

	tokens.Clear(w, r)
	if token != "" {
		_ = s.cache.Delete(ctx, profileKey(token))
	}
	s.notify(Anonymous())
	return err
}

// Subscribe registers fn for session transitions and returns its disposer.
// The disposer removes exactly this registration and is safe to call twice.
func (s *Service) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func profileKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "profile:" + hex.EncodeToString(sum[:8])
}
