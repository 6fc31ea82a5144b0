package achievements

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"teamboard/internal/models"
	"teamboard/internal/tasks"
	"teamboard/internal/team"
)

// TaskSource is the slice of the task store the tracker reads.
type TaskSource interface {
	ByAssignee(name string) []models.Task
	Subscribe(fn func(tasks.Change)) func()
}

// MemberSource is the slice of the member store the tracker reads.
type MemberSource interface {
	All() []models.Member
	Get(id string) (models.Member, bool)
	Subscribe(fn func(team.Change)) func()
}

// Tracker re-evaluates achievements when tasks or members change. Only the
// members touched by a change are evaluated: assignees of a changed task, or
// the added or updated member.
type Tracker struct {
	svc     *Service
	tasks   TaskSource
	members MemberSource
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	ctx   context.Context
	unsub []func()
}

// TrackerOption customises a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClock replaces time.Now for tenure calculations.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(svc *Service, taskSource TaskSource, members MemberSource, logger *slog.Logger, opts ...TrackerOption) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{svc: svc, tasks: taskSource, members: members, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start subscribes to task and member changes. ctx is used for the writes
// triggered by those changes.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsub != nil {
		return
	}
	t.ctx = context.WithoutCancel(ctx)
	t.unsub = []func(){
		t.tasks.Subscribe(t.onTaskChange),
		t.members.Subscribe(t.onMemberChange),
	}
}

// Stop removes the subscriptions.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, fn := range t.unsub {
		fn()
	}
	t.unsub = nil
}

// EvaluateAll evaluates every member and returns the newly awarded records.
func (t *Tracker) EvaluateAll(ctx context.Context) ([]models.Achievement, error) {
	var awarded []models.Achievement
	for _, m := range t.members.All() {
		got, err := t.EvaluateMember(ctx, m)
		if err != nil {
			return awarded, err
		}
		awarded = append(awarded, got...)
	}
	return awarded, nil
}

// EvaluateMember computes m's stats from the tasks assigned to m's name and
// awards any achievement now due. A member without a join date counts as
// joining now.
func (t *Tracker) EvaluateMember(ctx context.Context, m models.Member) ([]models.Achievement, error) {
	return t.svc.Evaluate(ctx, m.ID, t.StatsFor(m))
}

// StatsFor returns the current statistics of m.
func (t *Tracker) StatsFor(m models.Member) models.UserStats {
	now := t.now()
	joinDate := now
	if m.JoinDate != nil {
		joinDate = *m.JoinDate
	}
	return ComputeStats(t.tasks.ByAssignee(m.Name), joinDate, now)
}

func (t *Tracker) onTaskChange(c tasks.Change) {
	if len(c.Assignees) == 0 {
		return
	}
	for _, m := range t.members.All() {
		if !slices.Contains(c.Assignees, m.Name) {
			continue
		}
		t.evaluate(m)
	}
}

func (t *Tracker) onMemberChange(c team.Change) {
	if c.Op == team.OpRemove {
		return
	}
	if m, ok := t.members.Get(c.MemberID); ok {
		t.evaluate(m)
	}
}

func (t *Tracker) evaluate(m models.Member) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := t.EvaluateMember(ctx, m); err != nil {
		t.logger.Error("achievement evaluation failed", slog.String("member", m.ID), slog.String("error", err.Error()))
	}
}
