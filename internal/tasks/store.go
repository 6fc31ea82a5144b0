// Package tasks owns the task collection.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamboard/internal/metrics"
	"teamboard/internal/models"
	"teamboard/internal/notify"
	"teamboard/internal/storage"
)

var (
	ErrEmptyTitle      = errors.New("task title must not be empty")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
)

// CreateRequest describes a new task. Zero Status and Priority fall back to
// not-started and medium.
type CreateRequest struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.Priority
	Category    string
	Assignees   []string
}

// Patch carries the fields to merge into an existing task. Nil fields are
// left untouched.
type Patch struct {
	ID          string
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.Priority
	Category    *string
	Assignees   *[]string
}

// Op identifies the kind of mutation in a Change.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is published after every successful mutation. Assignees holds the
// names assigned before and after the change.
type Change struct {
	Op        Op
	TaskIDs   []string
	Assignees []string
}

// Store keeps tasks in insertion order and persists the whole collection on
// every mutation.
type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	tasks  []models.Task

	changes notify.Hub[Change]
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

// New creates an empty store. Call Load to read persisted tasks.
func New(kv storage.KV, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. Missing or
// unreadable data leaves the store empty.
func (s *Store) Load(ctx context.Context) {
	var loaded []models.Task
	storage.Load(ctx, s.kv, storage.KeyTasks, &loaded, s.logger)

	s.mu.Lock()
	s.tasks = loaded
	s.mu.Unlock()

	s.logger.Debug("tasks loaded", slog.Int("count", len(loaded)))
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn func(Change)) func() {
	return s.changes.Subscribe(fn)
}

// Add creates a task with a fresh id and timestamps.
func (s *Store) Add(ctx context.Context, req CreateRequest) (models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Task{}, ErrEmptyTitle
	}

	status := req.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	if !status.Valid() {
		return models.Task{}, ErrInvalidStatus
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, ErrInvalidPriority
	}

	now := s.now()
	task := models.Task{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		Priority:    priority,
		Category:    strings.TrimSpace(req.Category),
		Assignees:   normalizeAssignees(req.Assignees),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	next := append(slices.Clone(s.tasks), task)
	err := s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.Task{}, err
	}

	metrics.RecordMutation("tasks", string(OpAdd))
	s.changes.Publish(Change{Op: OpAdd, TaskIDs: []string{task.ID}, Assignees: slices.Clone(task.Assignees)})
	return clone(task), nil
}

// Update merges patch into the task with patch.ID. It reports false, without
// error, when no such task exists.
func (s *Store) Update(ctx context.Context, patch Patch) (models.Task, bool, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Task{}, false, ErrInvalidStatus
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return models.Task{}, false, ErrInvalidPriority
	}

	s.mu.Lock()
	idx := s.indexLocked(patch.ID)
	if idx < 0 {
		s.mu.Unlock()
		return models.Task{}, false, nil
	}

	before := s.tasks[idx]
	task := clone(before)
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != "" {
			task.Title = title
		}
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Category != nil {
		task.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Assignees != nil {
		task.Assignees = normalizeAssignees(*patch.Assignees)
	}
	task.UpdatedAt = s.now()

	next := slices.Clone(s.tasks)
	next[idx] = task
	err := s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return models.Task{}, true, err
	}

	metrics.RecordMutation("tasks", string(OpUpdate))
	s.changes.Publish(Change{
		Op:        OpUpdate,
		TaskIDs:   []string{task.ID},
		Assignees: unionNames(before.Assignees, task.Assignees),
	})
	return clone(task), true, nil
}

// UpdateStatus changes only the status and update timestamp.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (models.Task, bool, error) {
	return s.Update(ctx, Patch{ID: id, Status: &status})
}

// Delete removes the task with id. It reports whether a task was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	removed := s.tasks[idx]
	err := s.commitLocked(ctx, slices.Delete(slices.Clone(s.tasks), idx, idx+1))
	s.mu.Unlock()
	if err != nil {
		return true, err
	}

	metrics.RecordMutation("tasks", string(OpDelete))
	s.changes.Publish(Change{Op: OpDelete, TaskIDs: []string{id}, Assignees: slices.Clone(removed.Assignees)})
	return true, nil
}

// ClearCompleted removes every completed task and returns how many went.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	var (
		kept      []models.Task
		ids       []string
		assignees []string
	)
	for _, t := range s.tasks {
		if t.Status == models.StatusCompleted {
			ids = append(ids, t.ID)
			assignees = unionNames(assignees, t.Assignees)
			continue
		}
		kept = append(kept, t)
	}
	if len(ids) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.commitLocked(ctx, kept)
	s.mu.Unlock()
	if err != nil {
		return len(ids), err
	}

	metrics.RecordMutation("tasks", "clear_completed")
	s.changes.Publish(Change{Op: OpDelete, TaskIDs: ids, Assignees: assignees})
	return len(ids), nil
}

// Get returns the task with id.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Task{}, false
	}
	return clone(s.tasks[idx]), true
}

// All returns every task, newest first.
func (s *Store) All() []models.Task {
	return s.filter(func(models.Task) bool { return true })
}

// ByStatus returns tasks with the given status, newest first.
func (s *Store) ByStatus(status models.TaskStatus) []models.Task {
	return s.filter(func(t models.Task) bool { return t.Status == status })
}

// ByPriority returns tasks with the given priority, newest first.
func (s *Store) ByPriority(priority models.Priority) []models.Task {
	return s.filter(func(t models.Task) bool { return t.Priority == priority })
}

// ByAssignee returns tasks assigned to name, newest first.
func (s *Store) ByAssignee(name string) []models.Task {
	return s.filter(func(t models.Task) bool { return t.HasAssignee(name) })
}

// ByCategory returns tasks in category, newest first.
func (s *Store) ByCategory(category string) []models.Task {
	return s.filter(func(t models.Task) bool { return t.Category == category })
}

// Filter narrows All by every non-empty criterion.
type Filter struct {
	Status   models.TaskStatus
	Priority models.Priority
	Assignee string
	Category string
}

// Find returns tasks matching every set field of f, newest first.
func (s *Store) Find(f Filter) []models.Task {
	return s.filter(func(t models.Task) bool {
		if f.Status != "" && t.Status != f.Status {
			return false
		}
		if f.Priority != "" && t.Priority != f.Priority {
			return false
		}
		if f.Assignee != "" && !t.HasAssignee(f.Assignee) {
			return false
		}
		if f.Category != "" && t.Category != f.Category {
			return false
		}
		return true
	})
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *Store) CompletedCount() int  { return s.countStatus(models.StatusCompleted) }
func (s *Store) InProgressCount() int { return s.countStatus(models.StatusInProgress) }
func (s *Store) NotStartedCount() int { return s.countStatus(models.StatusNotStarted) }

func (s *Store) countStatus(status models.TaskStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// filter returns matching tasks ordered by descending creation time. Equal
// timestamps keep the later insertion first.
func (s *Store) filter(keep func(models.Task) bool) []models.Task {
	s.mu.RLock()
	out := make([]models.Task, 0, len(s.tasks))
	for i := len(s.tasks) - 1; i >= 0; i-- {
		if keep(s.tasks[i]) {
			out = append(out, clone(s.tasks[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked persists next and installs it only once the write succeeded.
func (s *Store) commitLocked(ctx context.Context, next []models.Task) error {
	if err := storage.Save(ctx, s.kv, storage.KeyTasks, next); err != nil {
		metrics.RecordWriteError(storage.KeyTasks)
		s.logger.Error("persist tasks failed", slog.String("error", err.Error()))
		return err
	}
	s.tasks = next
	return nil
}

func clone(t models.Task) models.Task {
	t.Assignees = slices.Clone(t.Assignees)
	return t
}

func normalizeAssignees(names []string) []string {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func unionNames(a, b []string) []string {
	out := slices.Clone(a)
	for _, n := range b {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
