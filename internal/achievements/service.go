// Package achievements evaluates the fixed achievement catalog against user
// statistics and keeps the earned records.
package achievements

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamboard/internal/metrics"
	"teamboard/internal/models"
	"teamboard/internal/storage"
)

// Service owns the earned achievement records. A user holds at most one
// achievement of each type.
type Service struct {
	mu      sync.RWMutex
	kv      storage.KV
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	records []models.Achievement
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now for earned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func New(kv storage.KV, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{kv: kv, logger: logger, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted records; unreadable data leaves the service empty.
func (s *Service) Load(ctx context.Context) {
	var loaded []models.Achievement
	storage.Load(ctx, s.kv, storage.KeyAchievements, &loaded, s.logger)

	s.mu.Lock()
	s.records = loaded
	s.mu.Unlock()
}

// Evaluate awards every catalog achievement userID does not hold yet and
// whose condition holds for stats. New records are written in one batch.
func (s *Service) Evaluate(ctx context.Context, userID string, stats models.UserStats) ([]models.Achievement, error) {
	metrics.AchievementEvaluations.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	held := make(map[models.AchievementType]bool)
	for _, a := range s.records {
		if a.UserID == userID {
			held[a.Type] = true
		}
	}

	var awarded []models.Achievement
	now := s.now()
	for _, def := range catalog {
		if held[def.Type] || !def.Condition(stats) {
			continue
		}
		awarded = append(awarded, models.Achievement{
			ID:          s.newID(),
			UserID:      userID,
			Type:        def.Type,
			Title:       def.Title,
			Description: def.Description,
			Icon:        def.Icon,
			EarnedAt:    now,
			IsNew:       true,
		})
	}
	if len(awarded) == 0 {
		return nil, nil
	}

	next := append(append([]models.Achievement(nil), s.records...), awarded...)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.records = next

	for _, a := range awarded {
		metrics.RecordAchievement(string(a.Type))
		s.logger.Info("achievement unlocked", slog.String("user", userID), slog.String("type", string(a.Type)))
	}
	return awarded, nil
}

// Has reports whether userID holds an achievement of type t.
func (s *Service) Has(userID string, t models.AchievementType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.records {
		if a.UserID == userID && a.Type == t {
			return true
		}
	}
	return false
}

// UserAchievements returns userID's achievements ordered by catalog priority.
func (s *Service) UserAchievements(userID string) []models.Achievement {
	s.mu.RLock()
	var out []models.Achievement
	for _, a := range s.records {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return priority(out[i].Type) < priority(out[j].Type)
	})
	return out
}

// NewAchievements returns userID's achievements not marked seen yet.
func (s *Service) NewAchievements(userID string) []models.Achievement {
	var out []models.Achievement
	for _, a := range s.UserAchievements(userID) {
		if a.IsNew {
			out = append(out, a)
		}
	}
	return out
}

// MarkSeen clears the new flag on achievement id. It reports false when no
// such achievement exists.
func (s *Service) MarkSeen(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, a := range s.records {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	if !s.records[idx].IsNew {
		return true, nil
	}

	next := append([]models.Achievement(nil), s.records...)
	next[idx].IsNew = false
	if err := s.persist(ctx, next); err != nil {
		return true, err
	}
	s.records = next
	return true, nil
}

// Recent returns the n most recently earned achievements across all users.
func (s *Service) Recent(n int) []models.Achievement {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EarnedAt.After(out[j].EarnedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// All returns every record in insertion order.
func (s *Service) All() []models.Achievement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Achievement(nil), s.records...)
}

// Reset drops every earned record.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.Remove(ctx, s.kv, storage.KeyAchievements); err != nil {
		return err
	}
	s.records = nil
	return nil
}

func (s *Service) persist(ctx context.Context, records []models.Achievement) error {
	if err := storage.Save(ctx, s.kv, storage.KeyAchievements, records); err != nil {
		metrics.RecordWriteError(storage.KeyAchievements)
		s.logger.Error("persist achievements failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func priority(t models.AchievementType) int {
	if d, ok := Lookup(t); ok {
		return d.Priority
	}
	return 0
}
