// Package auth provides the demo sign-in surface. Credentials of registered
// users are checked against a bcrypt hash; unknown emails are accepted and
// remembered, so this is not a security boundary.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teamboard/internal/models"
	"teamboard/internal/storage"
)

const defaultRole = "User"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEmptyName          = errors.New("name must not be empty")
	ErrTimeout            = errors.New("authentication timed out")
)

// Config tunes the service.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	// Latency simulates the round trip to an identity backend.
	Latency time.Duration
	// Timeout bounds Login and Register, including Latency.
	Timeout time.Duration
	// HashCost is the bcrypt cost; zero means 8.
	HashCost int
}

// Session is the result of a successful sign-in.
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type account struct {
	User         models.User `json:"user"`
	PasswordHash string      `json:"passwordHash,omitempty"`
}

type Service struct {
	mu       sync.RWMutex
	kv       storage.KV
	logger   *slog.Logger
	cfg      Config
	secret   []byte
	now      func() time.Time
	current  *models.User
	accounts []account
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now for token issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(kv storage.KV, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = 8
	}
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		logger.Warn("no auth secret configured; tokens will not survive a restart")
	}
	s := &Service{kv: kv, logger: logger, cfg: cfg, secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the signed-in user and the registered accounts.
func (s *Service) Load(ctx context.Context) {
	var current models.User
	hasCurrent := storage.Load(ctx, s.kv, storage.KeyCurrentUser, &current, s.logger)
	var accounts []account
	storage.Load(ctx, s.kv, storage.KeyUsers, &accounts, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	s.current = nil
	if hasCurrent && current.ID != "" {
		s.current = &current
	}
}

// Login signs in email. A registered email must present the matching
// password; any other non-empty credentials are accepted and remembered.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := s.roundTrip(ctx); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.accountLocked(email)
	if idx >= 0 {
		acc := s.accounts[idx]
		if acc.PasswordHash != "" && bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
			return Session{}, ErrInvalidCredentials
		}
		return s.signInLocked(ctx, acc.User)
	}

	user := models.User{
		ID:    uuid.NewString(),
		Name:  strings.SplitN(email, "@", 2)[0],
		Email: email,
		Role:  defaultRole,
	}
	if err := s.saveAccountsLocked(ctx, append(s.accounts, account{User: user})); err != nil {
		return Session{}, err
	}
	return s.signInLocked(ctx, user)
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return Session{}, ErrEmptyName
	}
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := s.roundTrip(ctx); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountLocked(email) >= 0 {
		return Session{}, ErrEmailTaken
	}
	user := models.User{ID: uuid.NewString(), Name: name, Email: email, Role: defaultRole}
	if err := s.saveAccountsLocked(ctx, append(s.accounts, account{User: user, PasswordHash: string(hash)})); err != nil {
		return Session{}, err
	}
	return s.signInLocked(ctx, user)
}

// Logout forgets the signed-in user.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.Remove(ctx, s.kv, storage.KeyCurrentUser); err != nil {
		return err
	}
	s.current = nil
	return nil
}

// Current returns the signed-in user.
func (s *Service) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.User{}, false
	}
	return *s.current, true
}

// Initials returns up to two upper-case initials of the signed-in user.
func (s *Service) Initials() string {
	u, ok := s.Current()
	if !ok {
		return ""
	}
	var out []rune
	for _, word := range strings.Fields(u.Name) {
		out = append(out, []rune(strings.ToUpper(word))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// roundTrip waits for the configured latency, honouring cancellation and
// the configured timeout.
func (s *Service) roundTrip(ctx context.Context) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if s.cfg.Latency <= 0 {
		return ctxErr(ctx.Err())
	}

	timer := time.NewTimer(s.cfg.Latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctxErr(ctx.Err())
	}
}

func ctxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (s *Service) signInLocked(ctx context.Context, user models.User) (Session, error) {
	token, expires, err := s.IssueToken(user)
	if err != nil {
		return Session{}, err
	}
	if err := storage.Save(ctx, s.kv, storage.KeyCurrentUser, user); err != nil {
		return Session{}, err
	}
	s.current = &user
	s.logger.Info("user signed in", slog.String("user", user.ID), slog.String("email", user.Email))
	return Session{User: user, Token: token, ExpiresAt: expires}, nil
}

func (s *Service) saveAccountsLocked(ctx context.Context, accounts []account) error {
	if err := storage.Save(ctx, s.kv, storage.KeyUsers, accounts); err != nil {
		return err
	}
	s.accounts = accounts
	return nil
}

func (s *Service) accountLocked(email string) int {
	for i, a := range s.accounts {
		if a.User.Email == email {
			return i
		}
	}
	return -1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
