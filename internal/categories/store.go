package categories

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"teamboard/internal/models"
)

// Error is returned once a call has exhausted its retries. Its message is
// the user-facing text also kept in Store.Err.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// API is the remote surface the store needs. *Client implements it.
type API interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, cat models.Category) (models.Category, error)
	Update(ctx context.Context, cat models.Category) (models.Category, error)
	Delete(ctx context.Context, id int64) error
}

// Store caches the remote catalogue. Failed calls are retried, then the
// formatted failure is kept as the store's error until the next call.
type Store struct {
	mu       sync.RWMutex
	api      API
	logger   *slog.Logger
	retries  int
	items    []models.Category
	inflight int
	errMsg   string
}

type StoreOption func(*Store)

// WithRetries sets how many times a failed call is repeated. Default 2.
func WithRetries(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func NewStore(api API, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{api: api, logger: logger, retries: 2}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the cache with the remote list.
func (s *Store) Load(ctx context.Context) error {
	var list []models.Category
	err := s.call(ctx, "Failed to load categories", func(ctx context.Context) error {
		var err error
		list, err = s.api.List(ctx)
		return err
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = list
	s.mu.Unlock()
	return nil
}

func (s *Store) Add(ctx context.Context, cat models.Category) (models.Category, error) {
	var created models.Category
	err := s.call(ctx, "Failed to create category", func(ctx context.Context) error {
		var err error
		created, err = s.api.Create(ctx, cat)
		return err
	})
	if err != nil {
		return models.Category{}, err
	}
	s.mu.Lock()
	s.items = append(s.items, created)
	s.mu.Unlock()
	return created, nil
}

func (s *Store) Update(ctx context.Context, cat models.Category) (models.Category, error) {
	var updated models.Category
	err := s.call(ctx, "Failed to update category", func(ctx context.Context) error {
		var err error
		updated, err = s.api.Update(ctx, cat)
		return err
	})
	if err != nil {
		return models.Category{}, err
	}
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == updated.ID {
			s.items[i] = updated
		}
	}
	s.mu.Unlock()
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.call(ctx, "Failed to delete category", func(ctx context.Context) error {
		return s.api.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(c models.Category) bool { return c.ID == id })
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(id int64) (models.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.items {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loading reports whether a remote call is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err returns the message of the last failed call, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) call(ctx context.Context, fallback string, fn func(context.Context) error) error {
	s.mu.Lock()
	s.inflight++
	s.errMsg = ""
	s.mu.Unlock()

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if err = fn(ctx); err == nil || ctx.Err() != nil {
			break
		}
		s.logger.Debug("category call failed", slog.String("op", fallback), slog.Int("attempt", attempt+1), slog.Any("err", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err == nil {
		return nil
	}
	s.errMsg = formatError(err, fallback)
	s.logger.Warn("category call gave up", slog.String("op", fallback), slog.Any("err", err))
	return &Error{Message: s.errMsg, Err: err}
}

func formatError(err error, fallback string) string {
	if errors.Is(err, ErrNotFound) {
		return fallback + ": Not found"
	}
	return err.Error()
}
