// Package sharedfiles keeps metadata about files shared with members and
// groups. File contents are never stored.
package sharedfiles

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

var (
	ErrEmptyName    = errors.New("file name must not be empty")
	ErrNegativeSize = errors.New("file size must not be negative")
)

type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	files  []models.SharedFile
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

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

func (s *Store) Load(ctx context.Context) {
	var loaded []models.SharedFile
	storage.Load(ctx, s.kv, storage.KeySharedFiles, &loaded, s.logger)

	s.mu.Lock()
	s.files = loaded
	s.mu.Unlock()
}

// Add records f with a fresh id. A zero UploadedDate is set to now.
func (s *Store) Add(ctx context.Context, f models.SharedFile) (models.SharedFile, error) {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return models.SharedFile{}, ErrEmptyName
	}
	if f.Size < 0 {
		return models.SharedFile{}, ErrNegativeSize
	}
	f.ID = s.newID()
	if f.UploadedDate.IsZero() {
		f.UploadedDate = s.now()
	}
	f = clone(f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitLocked(ctx, append(slices.Clone(s.files), f)); err != nil {
		return models.SharedFile{}, err
	}
	metrics.RecordMutation("files", "add")
	return clone(f), nil
}

// Delete removes the file with id, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.files, func(f models.SharedFile) bool { return f.ID == id })
	if idx < 0 {
		return false, nil
	}
	if err := s.commitLocked(ctx, slices.Delete(slices.Clone(s.files), idx, idx+1)); err != nil {
		return true, err
	}
	metrics.RecordMutation("files", "delete")
	return true, nil
}

// All returns every file, newest upload first.
func (s *Store) All() []models.SharedFile {
	s.mu.RLock()
	out := make([]models.SharedFile, len(s.files))
	for i, f := range s.files {
		out[i] = clone(f)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.SharedFile) int {
		return b.UploadedDate.Compare(a.UploadedDate)
	})
	return out
}

// SharedWith returns files shared with memberID directly or through one of
// groupIDs, plus files the member uploaded.
func (s *Store) SharedWith(memberID string, groupIDs []string) []models.SharedFile {
	var out []models.SharedFile
	for _, f := range s.All() {
		if f.UploadedBy == memberID || slices.Contains(f.SharedWithMembers, memberID) ||
			slices.ContainsFunc(f.SharedWithGroups, func(g string) bool { return slices.Contains(groupIDs, g) }) {
			out = append(out, f)
		}
	}
	return out
}

// commitLocked persists next and installs it only once the write succeeded.
func (s *Store) commitLocked(ctx context.Context, next []models.SharedFile) error {
	if err := storage.Save(ctx, s.kv, storage.KeySharedFiles, next); err != nil {
		metrics.RecordWriteError(storage.KeySharedFiles)
		s.logger.Error("persist shared files failed", slog.String("error", err.Error()))
		return err
	}
	s.files = next
	return nil
}

func clone(f models.SharedFile) models.SharedFile {
	f.SharedWithMembers = slices.Clone(f.SharedWithMembers)
	f.SharedWithGroups = slices.Clone(f.SharedWithGroups)
	return f
}
