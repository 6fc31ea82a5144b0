package achievements

import "teamboard/internal/models"

// Definition is one fixed achievement rule. Priority orders a user's
// achievements for display.
type Definition struct {
	Type        models.AchievementType      `json:"type"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Icon        string                      `json:"icon"`
	Priority    int                         `json:"priority"`
	Condition   func(models.UserStats) bool `json:"-"`
}

func completedAtLeast(n int) func(models.UserStats) bool {
	return func(s models.UserStats) bool { return s.CompletedTasks >= n }
}

func daysAtLeast(n int) func(models.UserStats) bool {
	return func(s models.UserStats) bool { return s.DaysInTeam >= n }
}

var catalog = []Definition{
	{Type: models.AchievementFirstTask, Title: "First Step", Description: "Completed your first task", Icon: "star", Priority: 1, Condition: completedAtLeast(1)},
	{Type: models.AchievementThreeTasks, Title: "Warming Up", Description: "Completed 3 tasks", Icon: "bolt", Priority: 2, Condition: completedAtLeast(3)},
	{Type: models.AchievementFiveTasks, Title: "On a Roll", Description: "Completed 5 tasks", Icon: "trending_up", Priority: 3, Condition: completedAtLeast(5)},
	{Type: models.AchievementTenTasks, Title: "Productive", Description: "Completed 10 tasks", Icon: "emoji_events", Priority: 4, Condition: completedAtLeast(10)},
	{Type: models.AchievementFifteenTasks, Title: "Dependable", Description: "Completed 15 tasks", Icon: "task_alt", Priority: 5, Condition: completedAtLeast(15)},
	{Type: models.AchievementTwentyTasks, Title: "Expert", Description: "Completed 20 tasks", Icon: "military_tech", Priority: 6, Condition: completedAtLeast(20)},
	{Type: models.AchievementFiftyTasks, Title: "Unstoppable", Description: "Completed 50 tasks", Icon: "rocket_launch", Priority: 7, Condition: completedAtLeast(50)},
	{
		Type:        models.AchievementHighEfficiency,
		Title:       "High Efficiency",
		Description: "Completed at least 80% of 5 or more assigned tasks",
		Icon:        "speed",
		Priority:    8,
		Condition: func(s models.UserStats) bool {
			return s.TotalTasks >= 5 && s.CompletionRate >= 80
		},
	},
	{Type: models.AchievementOneMonth, Title: "New on the Team", Description: "One month on the team", Icon: "group_add", Priority: 9, Condition: daysAtLeast(30)},
	{Type: models.AchievementThreeMonths, Title: "Established Member", Description: "Three months on the team", Icon: "group", Priority: 10, Condition: daysAtLeast(90)},
	{Type: models.AchievementSixMonths, Title: "Veteran", Description: "Six months on the team", Icon: "verified_user", Priority: 11, Condition: daysAtLeast(180)},
	{Type: models.AchievementOneYear, Title: "Team Leader", Description: "One year on the team", Icon: "workspace_premium", Priority: 12, Condition: daysAtLeast(365)},
}

// Catalog returns a copy of the fixed definitions in evaluation order.
func Catalog() []Definition {
	return append([]Definition(nil), catalog...)
}

// Lookup returns the definition for t.
func Lookup(t models.AchievementType) (Definition, bool) {
	for _, d := range catalog {
		if d.Type == t {
			return d, true
		}
	}
	return Definition{}, false
}
