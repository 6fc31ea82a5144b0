// Package team owns the member roster.
package team

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"teamboard/internal/metrics"
	"teamboard/internal/models"
	"teamboard/internal/notify"
	"teamboard/internal/storage"
)

var (
	ErrEmptyName   = errors.New("member name must not be empty")
	ErrDuplicateID = errors.New("member id already exists")
)

// Patch carries the member fields to merge. Nil fields are left untouched.
type Patch struct {
	Name     *string
	Email    *string
	Role     *string
	Avatar   *string
	JoinDate *time.Time
	Color    *string
}

// Op identifies the kind of mutation in a Change.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// Change is published after every successful mutation. Names holds the
// member's name before and after the change.
type Change struct {
	Op       Op
	MemberID string
	Names    []string
}

// Store keys members by id and keeps a name index for the name-based API.
// Names are not unique; name lookups resolve to the first member in
// insertion order.
type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	logger *slog.Logger
	newID  func() string

	order  []string
	byID   map[string]models.Member
	byName map[string][]string

	changes notify.Hub[Change]
}

// Option customises a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(kv storage.KV, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:     kv,
		logger: logger,
		newID:  uuid.NewString,
		byID:   make(map[string]models.Member),
		byName: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted roster. When nothing has been persisted yet and
// seed is set, the default roster is installed and written back.
func (s *Store) Load(ctx context.Context, seed bool) error {
	var loaded []models.Member
	found := storage.Load(ctx, s.kv, storage.KeyMembers, &loaded, s.logger)
	if !found && seed {
		loaded = DefaultRoster()
	}

	s.mu.Lock()
	s.order = s.order[:0]
	s.byID = make(map[string]models.Member, len(loaded))
	for _, m := range loaded {
		if _, dup := s.byID[m.ID]; dup || m.ID == "" {
			s.logger.Warn("skipping stored member with missing or duplicate id", slog.String("name", m.Name))
			continue
		}
		s.order = append(s.order, m.ID)
		s.byID[m.ID] = m
	}
	s.reindexLocked()
	var err error
	if !found && seed {
		err = s.save(ctx, s.order, s.byID)
	}
	s.mu.Unlock()

	s.logger.Debug("members loaded", slog.Int("count", len(s.order)), slog.Bool("seeded", !found && seed))
	return err
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn func(Change)) func() {
	return s.changes.Subscribe(fn)
}

// Add inserts m. A missing id is generated and missing initials are derived
// from the name.
func (s *Store) Add(ctx context.Context, m models.Member) (models.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return models.Member{}, ErrEmptyName
	}
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Avatar == "" {
		m.Avatar = Initials(m.Name)
	}
	m.Email = strings.TrimSpace(m.Email)

	s.mu.Lock()
	if _, exists := s.byID[m.ID]; exists {
		s.mu.Unlock()
		return models.Member{}, ErrDuplicateID
	}
	order, byID := s.snapshotLocked()
	order = append(order, m.ID)
	byID[m.ID] = m
	err := s.commitLocked(ctx, order, byID)
	s.mu.Unlock()
	if err != nil {
		return models.Member{}, err
	}

	metrics.RecordMutation("members", string(OpAdd))
	s.changes.Publish(Change{Op: OpAdd, MemberID: m.ID, Names: []string{m.Name}})
	return m, nil
}

// Remove deletes the member with id and reports whether one existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	m, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	order, byID := s.snapshotLocked()
	order = without(order, byID, id)
	err := s.commitLocked(ctx, order, byID)
	s.mu.Unlock()
	if err != nil {
		return true, err
	}

	metrics.RecordMutation("members", string(OpRemove))
	s.changes.Publish(Change{Op: OpRemove, MemberID: id, Names: []string{m.Name}})
	return true, nil
}

// RemoveByName deletes every member named name and returns how many went.
func (s *Store) RemoveByName(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	ids := slices.Clone(s.byName[name])
	if len(ids) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	order, byID := s.snapshotLocked()
	for _, id := range ids {
		order = without(order, byID, id)
	}
	err := s.commitLocked(ctx, order, byID)
	s.mu.Unlock()
	if err != nil {
		return len(ids), err
	}

	for _, id := range ids {
		metrics.RecordMutation("members", string(OpRemove))
		s.changes.Publish(Change{Op: OpRemove, MemberID: id, Names: []string{name}})
	}
	return len(ids), nil
}

// Update merges patch into the member with id. It reports false, without
// error, when no such member exists. A blank name in the patch is ignored.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (models.Member, bool, error) {
	s.mu.Lock()
	before, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return models.Member{}, false, nil
	}

	m := before
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			m.Name = name
		}
	}
	if patch.Email != nil {
		m.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Role != nil {
		m.Role = *patch.Role
	}
	if patch.Avatar != nil {
		m.Avatar = *patch.Avatar
	}
	if patch.JoinDate != nil {
		jd := *patch.JoinDate
		m.JoinDate = &jd
	}
	if patch.Color != nil {
		m.Color = *patch.Color
	}

	order, byID := s.snapshotLocked()
	byID[id] = m
	err := s.commitLocked(ctx, order, byID)
	s.mu.Unlock()
	if err != nil {
		return models.Member{}, true, err
	}

	names := []string{before.Name}
	if m.Name != before.Name {
		names = append(names, m.Name)
	}
	metrics.RecordMutation("members", string(OpUpdate))
	s.changes.Publish(Change{Op: OpUpdate, MemberID: id, Names: names})
	return m, true, nil
}

// Get returns the member with id.
func (s *Store) Get(id string) (models.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok
}

// GetByName returns the first member, in insertion order, named name.
func (s *Store) GetByName(name string) (models.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byName[name]
	if len(ids) == 0 {
		return models.Member{}, false
	}
	return s.byID[ids[0]], true
}

// All returns the roster in insertion order.
func (s *Store) All() []models.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Member, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// snapshotLocked returns copies of the order and id map for a mutation to
// work on.
func (s *Store) snapshotLocked() ([]string, map[string]models.Member) {
	byID := make(map[string]models.Member, len(s.byID)+1)
	for id, m := range s.byID {
		byID[id] = m
	}
	return slices.Clone(s.order), byID
}

// commitLocked persists the given roster and installs it only once the
// write succeeded.
func (s *Store) commitLocked(ctx context.Context, order []string, byID map[string]models.Member) error {
	if err := s.save(ctx, order, byID); err != nil {
		return err
	}
	s.order = order
	s.byID = byID
	s.reindexLocked()
	return nil
}

func without(order []string, byID map[string]models.Member, id string) []string {
	delete(byID, id)
	if i := slices.Index(order, id); i >= 0 {
		order = slices.Delete(order, i, i+1)
	}
	return order
}

func (s *Store) reindexLocked() {
	s.byName = make(map[string][]string, len(s.order))
	for _, id := range s.order {
		name := s.byID[id].Name
		s.byName[name] = append(s.byName[name], id)
	}
}

func (s *Store) save(ctx context.Context, order []string, byID map[string]models.Member) error {
	out := make([]models.Member, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	if err := storage.Save(ctx, s.kv, storage.KeyMembers, out); err != nil {
		metrics.RecordWriteError(storage.KeyMembers)
		s.logger.Error("persist members failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Initials returns the upper-cased first letters of the first two words.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		out = append(out, unicode.ToUpper([]rune(word)[0]))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// DefaultRoster is the team installed on first start.
func DefaultRoster() []models.Member {
	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return []models.Member{
		{ID: "1", Name: "Juan Pérez", Email: "juan@empresa.com", Role: "Manager", Avatar: "JP", JoinDate: date(2024, time.January, 15)},
		{ID: "2", Name: "María García", Email: "maria@empresa.com", Role: "Developer", Avatar: "MG", JoinDate: date(2024, time.February, 1)},
		{ID: "3", Name: "Carlos López", Email: "carlos@empresa.com", Role: "Designer", Avatar: "CL", JoinDate: date(2024, time.February, 15)},
		{ID: "4", Name: "Ana Martínez", Email: "ana@empresa.com", Role: "Analyst", Avatar: "AM", JoinDate: date(2024, time.March, 1)},
	}
}
