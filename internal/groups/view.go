package groups

import (
	"time"

	"teamboard/internal/models"
)

// MemberLookup resolves member ids. *team.Store satisfies it.
type MemberLookup interface {
	Get(id string) (models.Member, bool)
}

// TaskLookup resolves task ids. *tasks.Store satisfies it.
type TaskLookup interface {
	Get(id string) (models.Task, bool)
}

type MemberRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type TaskRef struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Priority  models.Priority   `json:"priority"`
	Status    models.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// View is a group with member and task fields joined in. It always reflects
// the current member and task records.
type View struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Members   []MemberRef `json:"members"`
	Tasks     []TaskRef   `json:"tasks"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Resolve joins g against the member and task stores. Ids that no longer
// resolve are left out.
func Resolve(g models.Group, members MemberLookup, tasks TaskLookup) View {
	v := View{
		ID:        g.ID,
		Name:      g.Name,
		Members:   make([]MemberRef, 0, len(g.MemberIDs)),
		Tasks:     make([]TaskRef, 0, len(g.TaskIDs)),
		CreatedAt: g.CreatedAt,
	}
	for _, id := range g.MemberIDs {
		if m, ok := members.Get(id); ok {
			v.Members = append(v.Members, MemberRef{ID: m.ID, Name: m.Name, Avatar: m.Avatar})
		}
	}
	for _, id := range g.TaskIDs {
		if t, ok := tasks.Get(id); ok {
			v.Tasks = append(v.Tasks, TaskRef{ID: t.ID, Title: t.Title, Priority: t.Priority, Status: t.Status, CreatedAt: t.CreatedAt})
		}
	}
	return v
}
