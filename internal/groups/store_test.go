package groups

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

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	n := 0
	created := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	return New(kv, nil,
		WithClock(func() time.Time { return created }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("g%d", n)
		}),
	), kv
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestAdd_AssignsIDAndCreatedAt(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	g, err := s.Add(context.Background(), models.Group{ID: "ignored", Name: " Core ", MemberIDs: []string{"1", "1", "2"}})
	require.NoError(t, err)

	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, "Core", g.Name)
	assert.Equal(t, []string{"1", "2"}, g.MemberIDs)
	assert.False(t, g.CreatedAt.IsZero())
}

func TestAdd_Validation(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, models.Group{Name: " "})
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = s.Add(ctx, models.Group{Name: "big", MemberIDs: ids("m", MaxMembers+1)})
	require.ErrorIs(t, err, ErrTooManyMembers)

	_, err = s.Add(ctx, models.Group{Name: "busy", TaskIDs: ids("t", MaxTasks+1)})
	require.ErrorIs(t, err, ErrTooManyTasks)

	_, err = s.Add(ctx, models.Group{Name: "full", MemberIDs: ids("m", MaxMembers), TaskIDs: ids("t", MaxTasks)})
	require.NoError(t, err)
	assert.Len(t, s.All(), 1)
}

func TestUpdate_ReplacesListsWholesale(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	g, err := s.Add(ctx, models.Group{Name: "Core", MemberIDs: []string{"1", "2"}, TaskIDs: []string{"a"}})
	require.NoError(t, err)

	members := []string{"3"}
	got, ok, err := s.Update(ctx, g.ID, Patch{MemberIDs: &members})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"3"}, got.MemberIDs)
	assert.Equal(t, []string{"a"}, got.TaskIDs, "absent list must be kept")
	assert.Equal(t, "Core", got.Name)
	assert.Equal(t, g.CreatedAt, got.CreatedAt)
}

func TestUpdate_RejectsOverLimit(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	g, err := s.Add(ctx, models.Group{Name: "Core"})
	require.NoError(t, err)

	tooMany := ids("t", MaxTasks+1)
	_, ok, err := s.Update(ctx, g.ID, Patch{TaskIDs: &tooMany})
	require.ErrorIs(t, err, ErrTooManyTasks)
	assert.True(t, ok)

	stored, _ := s.Get(g.ID)
	assert.Empty(t, stored.TaskIDs)
}

func TestUpdateAndDelete_Missing(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	name := "x"
	_, ok, err := s.Update(ctx, "none", Patch{Name: &name})
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := s.Delete(ctx, "none")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPersistence_RoundTrip(t *testing.T) {
	t.Parallel()
	s, kv := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, models.Group{Name: "A", MemberIDs: []string{"1"}})
	require.NoError(t, err)
	g2, err := s.Add(ctx, models.Group{Name: "B", TaskIDs: []string{"t"}})
	require.NoError(t, err)
	_, err = s.Delete(ctx, g2.ID)
	require.NoError(t, err)

	reloaded := New(kv, nil)
	reloaded.Load(ctx)
	if diff := cmp.Diff(s.All(), reloaded.All()); diff != "" {
		t.Fatalf("reloaded groups differ (-want +got):\n%s", diff)
	}
}

func TestForMember(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, models.Group{Name: "A", MemberIDs: []string{"1", "2"}})
	require.NoError(t, err)
	_, err = s.Add(ctx, models.Group{Name: "B", MemberIDs: []string{"2"}})
	require.NoError(t, err)

	assert.Len(t, s.ForMember("2"), 2)
	assert.Len(t, s.ForMember("1"), 1)
	assert.Empty(t, s.ForMember("3"))
}

type memberMap map[string]models.Member

func (m memberMap) Get(id string) (models.Member, bool) {
	v, ok := m[id]
	return v, ok
}

type taskMap map[string]models.Task

func (m taskMap) Get(id string) (models.Task, bool) {
	v, ok := m[id]
	return v, ok
}

func TestResolve_JoinsCurrentRecords(t *testing.T) {
	t.Parallel()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	members := memberMap{"1": {ID: "1", Name: "Ana", Avatar: "A"}}
	tasks := taskMap{"t1": {ID: "t1", Title: "Ship", Priority: models.PriorityHigh, Status: models.StatusInProgress, CreatedAt: created}}

	g := models.Group{ID: "g", Name: "Core", MemberIDs: []string{"1", "gone"}, TaskIDs: []string{"t1", "gone"}, CreatedAt: created}
	v := Resolve(g, members, tasks)

	want := View{
		ID:        "g",
		Name:      "Core",
		Members:   []MemberRef{{ID: "1", Name: "Ana", Avatar: "A"}},
		Tasks:     []TaskRef{{ID: "t1", Title: "Ship", Priority: models.PriorityHigh, Status: models.StatusInProgress, CreatedAt: created}},
		CreatedAt: created,
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("view (-want +got):\n%s", diff)
	}

	members["1"] = models.Member{ID: "1", Name: "Ana María", Avatar: "AM"}
	assert.Equal(t, "Ana María", Resolve(g, members, tasks).Members[0].Name)
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

func TestWriteFailureLeavesGroupsUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &flakyKV{KV: storage.NewMemory()}
	s := New(kv, nil)

	g, err := s.Add(ctx, models.Group{Name: "core", MemberIDs: []string{"1"}})
	require.NoError(t, err)
	kv.fail.Store(true)

	_, err = s.Add(ctx, models.Group{Name: "ghost"})
	require.Error(t, err)
	assert.Len(t, s.All(), 1)

	renamed := "renamed"
	_, found, err := s.Update(ctx, g.ID, Patch{Name: &renamed, MemberIDs: &[]string{"1", "2"}})
	require.Error(t, err)
	assert.True(t, found)
	got, ok := s.Get(g.ID)
	require.True(t, ok)
	assert.Equal(t, "core", got.Name)
	assert.Equal(t, []string{"1"}, got.MemberIDs)

	_, err = s.Delete(ctx, g.ID)
	require.Error(t, err)
	_, ok = s.Get(g.ID)
	assert.True(t, ok)
}
