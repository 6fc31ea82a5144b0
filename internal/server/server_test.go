package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamboard/internal/app"
	"teamboard/internal/config"
	"teamboard/internal/models"
	"teamboard/internal/storage"
	"teamboard/internal/team"
)

type testServer struct {
	t   *testing.T
	app *app.App
	srv *Server
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Driver = config.DriverMemory
	cfg.Auth.Latency = 0
	cfg.Auth.Secret = "test-secret"
	for _, fn := range mutate {
		fn(&cfg)
	}

	a, err := app.NewWithKV(context.Background(), cfg, storage.NewMemory(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &testServer{t: t, app: a, srv: New(a, "")}
}

func (ts *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type taskEnvelope struct {
	Task models.Task `json:"task"`
}

type tasksEnvelope struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "teamboard_http_request_duration_seconds")
}

func TestUnknownAPIPath(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"endpoint not found"}`, rec.Body.String())
}

func TestTasks_CRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/tasks", map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/tasks", map[string]any{
		"title": "Write docs", "priority": "high", "assignees": []string{"Ana Martínez"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[taskEnvelope](t, rec).Task
	assert.Equal(t, models.StatusNotStarted, created.Status)
	assert.Equal(t, models.PriorityHigh, created.Priority)

	rec = ts.do(http.MethodGet, "/api/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPut, "/api/tasks/"+created.ID, map[string]any{"description": "all of them"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all of them", decode[taskEnvelope](t, rec).Task.Description)
	assert.Equal(t, "Write docs", decode[taskEnvelope](t, rec).Task.Title)

	rec = ts.do(http.MethodPut, "/api/tasks/"+created.ID+"/status", map[string]any{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/tasks/"+created.ID+"/status", map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusInProgress, decode[taskEnvelope](t, rec).Task.Status)

	rec = ts.do(http.MethodPut, "/api/tasks/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasks_FiltersAndClearCompleted(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []map[string]any{
		{"title": "a", "status": "completed", "assignees": []string{"Juan Pérez"}},
		{"title": "b", "status": "completed", "category": "ops"},
		{"title": "c", "priority": "low", "assignees": []string{"Juan Pérez"}},
	} {
		require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/tasks", body).Code)
	}

	list := decode[tasksEnvelope](t, ts.do(http.MethodGet, "/api/tasks?status=completed", nil))
	assert.Equal(t, 2, list.Count)

	list = decode[tasksEnvelope](t, ts.do(http.MethodGet, "/api/tasks?assignee=Juan+P%C3%A9rez&priority=low", nil))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, "c", list.Tasks[0].Title)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/tasks?priority=urgent", nil).Code)

	rec := ts.do(http.MethodDelete, "/api/tasks/completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":2}`, rec.Body.String())
	assert.Equal(t, 1, ts.app.Tasks.Count())
}

func TestMembers_AchievementsFollowTasks(t *testing.T) {
	ts := newTestServer(t)
	juan, ok := ts.app.Members.GetByName("Juan Pérez")
	require.True(t, ok)

	rec := ts.do(http.MethodPost, "/api/tasks", map[string]any{
		"title": "ship", "status": "completed", "assignees": []string{"Juan Pérez"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/api/members/"+juan.ID+"/achievements?new=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Achievements []models.Achievement `json:"achievements"`
	}](t, rec).Achievements
	require.NotEmpty(t, got)
	assert.Equal(t, models.AchievementFirstTask, got[0].Type)

	rec = ts.do(http.MethodPost, "/api/achievements/"+got[0].ID+"/seen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.app.Achievements.UserAchievements(juan.ID)[0].IsNew)

	rec = ts.do(http.MethodGet, "/api/members/"+juan.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Stats models.UserStats `json:"stats"`
	}](t, rec).Stats
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 100, stats.CompletionRate)

	rec = ts.do(http.MethodGet, "/api/achievements/definitions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first-task"`)
}

func TestMembers_CRUDAndColor(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/members", map[string]any{"name": "Luis Torres", "role": "QA"})
	require.Equal(t, http.StatusCreated, rec.Code)
	luis := decode[struct {
		Member models.Member `json:"member"`
	}](t, rec).Member
	assert.Equal(t, "LT", luis.Avatar)

	rec = ts.do(http.MethodPost, "/api/members", map[string]any{"id": luis.ID, "name": "Dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/members/"+luis.ID+"/color", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ts.app.MemberColors.Color("Luis Torres"), decode[map[string]string](t, rec)["color"])

	rec = ts.do(http.MethodPut, "/api/members/"+luis.ID+"/color", map[string]any{"color": "#123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	m, _ := ts.app.Members.Get(luis.ID)
	assert.Equal(t, "#123456", m.Color)

	_, err := ts.app.Members.Add(context.Background(), models.Member{Name: "Luis Torres"})
	require.NoError(t, err)
	rec = ts.do(http.MethodDelete, "/api/members?name=Luis+Torres", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":2}`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodDelete, "/api/members", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/members/"+luis.ID, nil).Code)
}

func TestGroups_LimitsAndResolve(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/groups", map[string]any{
		"name": "Too many", "memberIds": []string{"1", "2", "3", "4", "5", "6", "7"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/groups", map[string]any{
		"name": "Core", "memberIds": []string{"1", "2", "ghost"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Group struct {
			ID      string `json:"id"`
			Members []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"members"`
		} `json:"group"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Group.Members, 2)
	assert.Equal(t, "Juan Pérez", created.Group.Members[0].Name)

	// renames show through immediately
	maria := "María G."
	_, _, err := ts.app.Members.Update(context.Background(), "2", team.Patch{Name: &maria})
	require.NoError(t, err)
	rec = ts.do(http.MethodGet, "/api/groups/"+created.Group.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), maria)

	rec = ts.do(http.MethodPut, "/api/groups/"+created.Group.ID, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPut, "/api/groups/"+created.Group.ID+"/color", map[string]any{"color": "#abcdef"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/groups/"+created.Group.ID+"/color", nil)
	assert.JSONEq(t, `{"color":"#abcdef"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/groups/"+created.Group.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/groups/"+created.Group.ID, nil).Code)
}

func TestDashboardAndSession(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/tasks", map[string]any{"title": "x"}).Code)

	rec := ts.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Summary struct {
			TotalTasks int `json:"totalTasks"`
			TeamSize   int `json:"teamSize"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Summary.TotalTasks)
	assert.Equal(t, 4, body.Summary.TeamSize)

	rec = ts.do(http.MethodPost, "/api/session/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"safe"`)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/session/dismiss", nil).Code)
}

func TestFiles(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/files", map[string]any{"name": ""}).Code)

	rec := ts.do(http.MethodPost, "/api/files", map[string]any{
		"name": "plan.pdf", "size": 2048, "sharedWithMembers": []string{"3"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	f := decode[struct {
		File models.SharedFile `json:"file"`
	}](t, rec).File

	rec = ts.do(http.MethodGet, "/api/members/3/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "plan.pdf")

	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/files/"+f.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/files/"+f.ID, nil).Code)
}

func TestCategories_NotConfigured(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodGet, "/api/categories", nil).Code)
}

func TestCategories_Proxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/categories":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Frontend"}]`))
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":2,"name":"Backend"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	ts := newTestServer(t, func(c *config.Config) { c.Categories.BaseURL = upstream.URL })

	rec := ts.do(http.MethodPost, "/api/categories/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Frontend")

	rec = ts.do(http.MethodPost, "/api/categories", map[string]any{"name": "Backend"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/categories/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to delete category: Not found"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/categories/abc", nil).Code)
}

func TestAuth_LoginMeLogout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Eva Ruiz", "email": "eva@empresa.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Eva", "email": "eva@empresa.com", "password": "pw",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "eva@empresa.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"initials":"ER"`)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/auth/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/auth/me", nil).Code)
}

func TestAuth_RequireToken(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Auth.RequireToken = true })

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/tasks", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/tasks", nil, "Authorization", "Bearer junk").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/healthz", nil).Code)

	rec := ts.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "a@b.c", "password": "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[struct {
		Token string `json:"token"`
	}](t, rec).Token

	rec = ts.do(http.MethodGet, "/api/tasks", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/files", map[string]any{"name": "mine.txt"}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, rec.Code)
	user, _ := ts.app.Auth.Current()
	assert.Equal(t, user.ID, decode[struct {
		File models.SharedFile `json:"file"`
	}](t, rec).File.UploadedBy)
}

func TestColorsRejectBlank(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	before := ts.do(http.MethodGet, "/api/members/1/color", nil)
	require.Equal(t, http.StatusOK, before.Code)

	rec := ts.do(http.MethodPut, "/api/members/1/color", map[string]any{"color": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	member, ok := ts.app.Members.Get("1")
	require.True(t, ok)
	assert.Empty(t, member.Color)

	after := ts.do(http.MethodGet, "/api/members/1/color", nil)
	assert.JSONEq(t, before.Body.String(), after.Body.String())

	group, err := ts.app.Groups.Add(context.Background(), models.Group{Name: "core"})
	require.NoError(t, err)
	rec = ts.do(http.MethodPut, "/api/groups/"+group.ID+"/color", map[string]any{"color": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, assigned := ts.app.GroupColors.Existing("core")
	assert.False(t, assigned)
}

func TestColorAssignments(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	group, err := ts.app.Groups.Add(context.Background(), models.Group{Name: "core"})
	require.NoError(t, err)

	rec := ts.do(http.MethodGet, "/api/colors/groups/core", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPut, "/api/groups/"+group.ID+"/color", map[string]any{"color": "#abcdef"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/colors/groups/core", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"color":"#abcdef"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/colors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[map[string]map[string]string](t, rec)
	assert.Equal(t, map[string]string{"core": "#abcdef"}, listed["groups"])

	rec = ts.do(http.MethodGet, "/api/colors/teams/core", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/colors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.app.GroupColors.Assigned())
	assert.Empty(t, ts.app.MemberColors.Assigned())
}

func TestStorageKeys(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/tasks", map[string]any{"title": "write docs"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/api/storage/keys", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Driver string   `json:"driver"`
		Keys   []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, config.DriverMemory, got.Driver)
	assert.Contains(t, got.Keys, storage.KeyTasks)
	assert.Contains(t, got.Keys, storage.KeyMembers)
}
