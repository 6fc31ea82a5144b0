package models

import "time"

// TaskStatus is the column a task sits in on the board.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not-started"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the supported statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the supported priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single unit of work on the team board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	Assignees   []string   `json:"assignees,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HasAssignee reports whether name is one of the task assignees.
// Matching is exact and case-sensitive.
func (t Task) HasAssignee(name string) bool {
	for _, a := range t.Assignees {
		if a == name {
			return true
		}
	}
	return false
}

// Member is a person on the team. Name doubles as a secondary key because
// tasks reference assignees by name.
type Member struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role"`
	Avatar   string     `json:"avatar"`
	JoinDate *time.Time `json:"joinDate,omitempty"`
	Color    string     `json:"color,omitempty"`
}

// Group is a named collection of members and tasks. Only identifiers are
// stored; display fields are resolved against the member and task stores.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"memberIds"`
	TaskIDs   []string  `json:"taskIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// AchievementType names one entry of the fixed achievement catalog.
type AchievementType string

const (
	AchievementFirstTask      AchievementType = "first-task"
	AchievementThreeTasks     AchievementType = "three-tasks"
	AchievementFiveTasks      AchievementType = "five-tasks"
	AchievementTenTasks       AchievementType = "ten-tasks"
	AchievementFifteenTasks   AchievementType = "fifteen-tasks"
	AchievementTwentyTasks    AchievementType = "twenty-tasks"
	AchievementFiftyTasks     AchievementType = "fifty-tasks"
	AchievementHighEfficiency AchievementType = "high-efficiency"
	AchievementOneMonth       AchievementType = "team-member-1-month"
	AchievementThreeMonths    AchievementType = "team-member-3-months"
	AchievementSixMonths      AchievementType = "team-member-6-months"
	AchievementOneYear        AchievementType = "team-member-1-year"
)

// Achievement is a badge earned by a user. IsNew stays true until the user
// has seen the notification.
type Achievement struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        AchievementType `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	EarnedAt    time.Time       `json:"earnedAt"`
	IsNew       bool            `json:"isNew"`
}

// UserStats is the derived snapshot achievements are evaluated against.
// It is never persisted.
type UserStats struct {
	TotalTasks      int       `json:"totalTasks"`
	CompletedTasks  int       `json:"completedTasks"`
	InProgressTasks int       `json:"inProgressTasks"`
	NotStartedTasks int       `json:"notStartedTasks"`
	CompletionRate  int       `json:"completionRate"`
	JoinDate        time.Time `json:"joinDate"`
	DaysInTeam      int       `json:"daysInTeam"`
}

// User is the authenticated identity of a session.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SharedFile is metadata about a file shared with members or groups.
type SharedFile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Size              int64     `json:"size"`
	UploadedBy        string    `json:"uploadedBy"`
	UploadedDate      time.Time `json:"uploadedDate"`
	URL               string    `json:"url,omitempty"`
	SharedWithMembers []string  `json:"sharedWithMembers,omitempty"`
	SharedWithGroups  []string  `json:"sharedWithGroups,omitempty"`
}

// Category is a learning category served by the remote category API.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
