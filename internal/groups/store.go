// Package groups owns named collections of member and task references.
package groups

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamboard/internal/metrics"
	"teamboard/internal/models"
	"teamboard/internal/storage"
)

// Size caps per group.
const (
	MaxMembers = 6
	MaxTasks   = 10
)

var (
	ErrEmptyName      = errors.New("group name must not be empty")
	ErrTooManyMembers = errors.New("group exceeds member limit")
	ErrTooManyTasks   = errors.New("group exceeds task limit")
)

// Patch carries the group fields to change. Member and task lists replace
// the stored lists wholesale.
type Patch struct {
	Name      *string
	MemberIDs *[]string
	TaskIDs   *[]string
}

type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	groups []models.Group
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(kv storage.KV, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{kv: kv, logger: logger, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads persisted groups; unreadable data leaves the store empty.
func (s *Store) Load(ctx context.Context) {
	var loaded []models.Group
	storage.Load(ctx, s.kv, storage.KeyGroups, &loaded, s.logger)

	s.mu.Lock()
	s.groups = loaded
	s.mu.Unlock()
}

// Add stores g under a fresh id and creation time.
func (s *Store) Add(ctx context.Context, g models.Group) (models.Group, error) {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return models.Group{}, ErrEmptyName
	}
	g.MemberIDs = dedupe(g.MemberIDs)
	g.TaskIDs = dedupe(g.TaskIDs)
	if err := checkLimits(g); err != nil {
		return models.Group{}, err
	}
	g.ID = s.newID()
	g.CreatedAt = s.now()

	s.mu.Lock()
	err := s.commitLocked(ctx, append(slices.Clone(s.groups), g))
	s.mu.Unlock()
	if err != nil {
		return models.Group{}, err
	}

	metrics.RecordMutation("groups", "add")
	return clone(g), nil
}

// Update applies patch to the group with id. It reports false, without
// error, when no such group exists.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (models.Group, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Group{}, false, nil
	}

	g := clone(s.groups[idx])
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Group{}, true, ErrEmptyName
		}
		g.Name = name
	}
	if patch.MemberIDs != nil {
		g.MemberIDs = dedupe(*patch.MemberIDs)
	}
	if patch.TaskIDs != nil {
		g.TaskIDs = dedupe(*patch.TaskIDs)
	}
	if err := checkLimits(g); err != nil {
		return models.Group{}, true, err
	}

	next := slices.Clone(s.groups)
	next[idx] = g
	if err := s.commitLocked(ctx, next); err != nil {
		return models.Group{}, true, err
	}
	metrics.RecordMutation("groups", "update")
	return clone(g), true, nil
}

// Delete removes the group with id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	if err := s.commitLocked(ctx, slices.Delete(slices.Clone(s.groups), idx, idx+1)); err != nil {
		return true, err
	}
	metrics.RecordMutation("groups", "delete")
	return true, nil
}

func (s *Store) Get(id string) (models.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Group{}, false
	}
	return clone(s.groups[idx]), true
}

// All returns groups in creation order.
func (s *Store) All() []models.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = clone(g)
	}
	return out
}

// ForMember returns the groups memberID belongs to.
func (s *Store) ForMember(memberID string) []models.Group {
	var out []models.Group
	for _, g := range s.All() {
		if slices.Contains(g.MemberIDs, memberID) {
			out = append(out, g)
		}
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, g := range s.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked persists next and installs it only once the write succeeded.
func (s *Store) commitLocked(ctx context.Context, next []models.Group) error {
	if err := storage.Save(ctx, s.kv, storage.KeyGroups, next); err != nil {
		metrics.RecordWriteError(storage.KeyGroups)
		s.logger.Error("persist groups failed", slog.String("error", err.Error()))
		return err
	}
	s.groups = next
	return nil
}

func checkLimits(g models.Group) error {
	if len(g.MemberIDs) > MaxMembers {
		return ErrTooManyMembers
	}
	if len(g.TaskIDs) > MaxTasks {
		return ErrTooManyTasks
	}
	return nil
}

func clone(g models.Group) models.Group {
	g.MemberIDs = slices.Clone(g.MemberIDs)
	g.TaskIDs = slices.Clone(g.TaskIDs)
	return g
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
