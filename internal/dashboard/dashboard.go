// Package dashboard derives the team overview from the live stores.
package dashboard

import (
	"slices"
	"time"

	"teamboard/internal/achievements"
	"teamboard/internal/models"
)

const (
	recentTasks        = 5
	recentAchievements = 5
)

type TaskSource interface {
	All() []models.Task
	ByAssignee(name string) []models.Task
}

type MemberSource interface {
	All() []models.Member
}

type AchievementSource interface {
	Recent(n int) []models.Achievement
}

// Productivity is one member's task breakdown.
type Productivity struct {
	MemberID       string `json:"memberId"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar"`
	TotalTasks     int    `json:"totalTasks"`
	CompletedTasks int    `json:"completedTasks"`
	InProgress     int    `json:"inProgress"`
	NotStarted     int    `json:"notStarted"`
	CompletionRate int    `json:"completionRate"`
}

type Summary struct {
	TotalTasks      int `json:"totalTasks"`
	CompletedTasks  int `json:"completedTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	NotStartedTasks int `json:"notStartedTasks"`

	CompletionRate int `json:"completionRate"`
	InProgressRate int `json:"inProgressRate"`
	NotStartedRate int `json:"notStartedRate"`

	HighPriorityTasks   int `json:"highPriorityTasks"`
	MediumPriorityTasks int `json:"mediumPriorityTasks"`
	LowPriorityTasks    int `json:"lowPriorityTasks"`

	TeamSize           int                  `json:"teamSize"`
	RecentTasks        []models.Task        `json:"recentTasks"`
	TeamProductivity   []Productivity       `json:"teamProductivity"`
	RecentAchievements []models.Achievement `json:"recentAchievements"`

	TasksToday    int `json:"tasksToday"`
	TasksThisWeek int `json:"tasksThisWeek"`
}

type Service struct {
	tasks        TaskSource
	members      MemberSource
	achievements AchievementSource
	now          func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(tasks TaskSource, members MemberSource, achievements AchievementSource, opts ...Option) *Service {
	s := &Service{tasks: tasks, members: members, achievements: achievements, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary computes a fresh snapshot. Task lists come newest first from the
// task store, so the first five are the most recent.
func (s *Service) Summary() Summary {
	all := s.tasks.All()
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	sum := Summary{
		TotalTasks:         len(all),
		RecentTasks:        all[:min(recentTasks, len(all))],
		RecentAchievements: s.achievements.Recent(recentAchievements),
	}
	for _, t := range all {
		switch t.Status {
		case models.StatusCompleted:
			sum.CompletedTasks++
		case models.StatusInProgress:
			sum.InProgressTasks++
		case models.StatusNotStarted:
			sum.NotStartedTasks++
		}
		switch t.Priority {
		case models.PriorityHigh:
			sum.HighPriorityTasks++
		case models.PriorityMedium:
			sum.MediumPriorityTasks++
		case models.PriorityLow:
			sum.LowPriorityTasks++
		}
		if !t.CreatedAt.Before(midnight) {
			sum.TasksToday++
		}
		if !t.CreatedAt.Before(weekAgo) {
			sum.TasksThisWeek++
		}
	}
	sum.CompletionRate = achievements.CompletionRate(sum.CompletedTasks, sum.TotalTasks)
	sum.InProgressRate = achievements.CompletionRate(sum.InProgressTasks, sum.TotalTasks)
	sum.NotStartedRate = achievements.CompletionRate(sum.NotStartedTasks, sum.TotalTasks)

	members := s.members.All()
	sum.TeamSize = len(members)
	sum.TeamProductivity = make([]Productivity, 0, len(members))
	for _, m := range members {
		p := Productivity{MemberID: m.ID, Name: m.Name, Avatar: m.Avatar}
		for _, t := range s.tasks.ByAssignee(m.Name) {
			p.TotalTasks++
			switch t.Status {
			case models.StatusCompleted:
				p.CompletedTasks++
			case models.StatusInProgress:
				p.InProgress++
			case models.StatusNotStarted:
				p.NotStarted++
			}
		}
		p.CompletionRate = achievements.CompletionRate(p.CompletedTasks, p.TotalTasks)
		sum.TeamProductivity = append(sum.TeamProductivity, p)
	}
	slices.SortStableFunc(sum.TeamProductivity, func(a, b Productivity) int {
		return b.CompletionRate - a.CompletionRate
	})
	return sum
}
