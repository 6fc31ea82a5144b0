package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamboard/internal/models"
	"teamboard/internal/storage"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	clock := &stepClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	n := 0
	s := New(kv, nil, WithClock(clock.Now), WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}))
	return s, kv
}

func titles(ts []models.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title
	}
	return out
}

func TestAdd_Defaults(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	task, err := s.Add(context.Background(), CreateRequest{Title: "  Write report  "})
	require.NoError(t, err)

	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, models.StatusNotStarted, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
	assert.Equal(t, 1, s.Count())
}

func TestAdd_EmptyTitle(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	_, err := s.Add(context.Background(), CreateRequest{Title: "   "})
	require.ErrorIs(t, err, ErrEmptyTitle)
	assert.Equal(t, 0, s.Count())
}

func TestAdd_InvalidEnums(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, CreateRequest{Title: "x", Status: "done"})
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = s.Add(ctx, CreateRequest{Title: "x", Priority: "urgent"})
	require.ErrorIs(t, err, ErrInvalidPriority)
	assert.Equal(t, 0, s.Count())
}

func TestDelete_Missing(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, CreateRequest{Title: "keep"})
	require.NoError(t, err)

	removed, err := s.Delete(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, s.Count())
}

func TestUpdate_MissingIsNoop(t *testing.T) {
	t.Parallel()
	s, kv := newTestStore(t)

	title := "new"
	_, ok, err := s.Update(context.Background(), Patch{ID: "missing", Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = kv.Get(context.Background(), storage.KeyTasks)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdate_MergesFields(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	task, err := s.Add(ctx, CreateRequest{Title: "a", Description: "d", Category: "ops", Assignees: []string{"Ana"}})
	require.NoError(t, err)

	blank := "  "
	prio := models.PriorityHigh
	got, ok, err := s.Update(ctx, Patch{ID: task.ID, Title: &blank, Priority: &prio})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "a", got.Title, "blank title must be ignored")
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, []string{"Ana"}, got.Assignees)
	assert.True(t, got.UpdatedAt.After(task.UpdatedAt))
}

func TestUpdateStatus_OnlyTouchesStatus(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	task, err := s.Add(ctx, CreateRequest{Title: "a", Priority: models.PriorityLow, Assignees: []string{"Ana"}})
	require.NoError(t, err)

	first, ok, err := s.UpdateStatus(ctx, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	require.True(t, ok)

	want := task
	want.Status = models.StatusCompleted
	want.UpdatedAt = first.UpdatedAt
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("unexpected task (-want +got):\n%s", diff)
	}

	second, _, err := s.UpdateStatus(ctx, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	second.UpdatedAt = first.UpdatedAt
	assert.Equal(t, first, second)
}

func TestAssigneeScenario(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, CreateRequest{Title: "A", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = s.Add(ctx, CreateRequest{Title: "B", Priority: models.PriorityMedium, Assignees: []string{"Ana"}})
	require.NoError(t, err)
	_, err = s.Add(ctx, CreateRequest{Title: "C", Priority: models.PriorityLow, Assignees: []string{"Ana"}, Status: models.StatusCompleted})
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "B"}, titles(s.ByAssignee("Ana")))
	assert.Empty(t, s.ByAssignee("ana"))
	assert.Equal(t, 1, s.CompletedCount())
	assert.Equal(t, 2, s.NotStartedCount())
	assert.Equal(t, 0, s.InProgressCount())
	assert.Equal(t, []string{"C", "B", "A"}, titles(s.All()))
	assert.Equal(t, []string{"A"}, titles(s.ByPriority(models.PriorityHigh)))
}

func TestOrdering_EqualTimestampsNewestInsertFirst(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(storage.NewMemory(), nil, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.Add(ctx, CreateRequest{Title: title})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"three", "two", "one"}, titles(s.All()))
}

func TestFind_CombinesCriteria(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, CreateRequest{Title: "a", Category: "ops", Assignees: []string{"Ana", "Luis"}})
	require.NoError(t, err)
	_, err = s.Add(ctx, CreateRequest{Title: "b", Category: "dev", Assignees: []string{"Luis"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, titles(s.Find(Filter{Assignee: "Luis", Category: "ops"})))
	assert.Equal(t, []string{"b", "a"}, titles(s.Find(Filter{Assignee: "Luis"})))
	assert.Equal(t, []string{"b"}, titles(s.ByCategory("dev")))
}

func TestClearCompleted(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, CreateRequest{Title: "done", Status: models.StatusCompleted})
	require.NoError(t, err)
	_, err = s.Add(ctx, CreateRequest{Title: "open"})
	require.NoError(t, err)

	n, err := s.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"open"}, titles(s.All()))
}

func TestPersistence_RoundTrip(t *testing.T) {
	t.Parallel()
	s, kv := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, CreateRequest{Title: "persisted", Assignees: []string{"Ana", "Ana", " "}})
	require.NoError(t, err)

	reloaded := New(kv, nil)
	reloaded.Load(ctx)
	if diff := cmp.Diff(s.All(), reloaded.All()); diff != "" {
		t.Fatalf("reloaded tasks differ (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Ana"}, reloaded.All()[0].Assignees)
}

func TestLoad_MalformedResetsToEmpty(t *testing.T) {
	t.Parallel()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), storage.KeyTasks, []byte(`{not json`)))

	s := New(kv, nil)
	s.Load(context.Background())
	assert.Equal(t, 0, s.Count())
}

// flakyKV fails every write while fail is set.
type flakyKV struct {
	storage.KV
	fail atomic.Bool
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail.Load() {
		return errors.New("disk full")
	}
	return f.KV.Set(ctx, key, value)
}

func TestAdd_WriteFailureReturnsError(t *testing.T) {
	t.Parallel()
	kv := &flakyKV{KV: storage.NewMemory()}
	kv.fail.Store(true)
	s := New(kv, nil)

	var events int
	s.Subscribe(func(Change) { events++ })

	_, err := s.Add(context.Background(), CreateRequest{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, s.Count())
	assert.Empty(t, s.All())
	assert.Zero(t, events)
}

func TestWriteFailureLeavesTasksUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &flakyKV{KV: storage.NewMemory()}
	s := New(kv, nil)

	done, err := s.Add(ctx, CreateRequest{Title: "done", Status: models.StatusCompleted})
	require.NoError(t, err)
	open, err := s.Add(ctx, CreateRequest{Title: "open"})
	require.NoError(t, err)
	kv.fail.Store(true)

	renamed := "renamed"
	_, found, err := s.Update(ctx, Patch{ID: open.ID, Title: &renamed})
	require.Error(t, err)
	assert.True(t, found)
	got, _ := s.Get(open.ID)
	assert.Equal(t, "open", got.Title)

	_, err = s.Delete(ctx, open.ID)
	require.Error(t, err)
	_, ok := s.Get(open.ID)
	assert.True(t, ok)

	_, err = s.ClearCompleted(ctx)
	require.Error(t, err)
	_, ok = s.Get(done.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, s.Count())

	kv.fail.Store(false)
	_, err = s.Add(ctx, CreateRequest{Title: "third"})
	require.NoError(t, err)

	reloaded := New(kv, nil)
	reloaded.Load(ctx)
	assert.ElementsMatch(t, []string{"done", "open", "third"}, titles(reloaded.All()))
}

func TestSubscribe_ReportsAssignees(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	task, err := s.Add(ctx, CreateRequest{Title: "a", Assignees: []string{"Ana"}})
	require.NoError(t, err)
	luis := []string{"Luis"}
	_, _, err = s.Update(ctx, Patch{ID: task.ID, Assignees: &luis})
	require.NoError(t, err)

	unsubscribe()
	_, err = s.Delete(ctx, task.ID)
	require.NoError(t, err)

	want := []Change{
		{Op: OpAdd, TaskIDs: []string{"t1"}, Assignees: []string{"Ana"}},
		{Op: OpUpdate, TaskIDs: []string{"t1"}, Assignees: []string{"Ana", "Luis"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changes (-want +got):\n%s", diff)
	}
}
