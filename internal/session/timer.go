// Package session tracks how long the current work session has been running.
package session

import (
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	StatusSafe    Status = "safe"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
)

const (
	WarnAfter   = 5 * time.Minute
	DangerAfter = 7 * time.Minute
	BreakAfter  = 10 * time.Minute
)

// State is a snapshot of the timer.
type State struct {
	ElapsedSeconds int    `json:"elapsedTime"`
	Formatted      string `json:"formatted"`
	Status         Status `json:"status"`
	Color          string `json:"color"`
	ShowBreak      bool   `json:"shouldShowBreakModal"`
}

type Timer struct {
	mu        sync.Mutex
	now       func() time.Time
	start     time.Time
	dismissed bool
}

// Option customises a Timer.
type Option func(*Timer)

func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// NewTimer starts a session immediately.
func NewTimer(opts ...Option) *Timer {
	t := &Timer{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.now()
	return t
}

// State computes the current snapshot.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := t.now().Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}
	secs := int(elapsed / time.Second)
	status := StatusFor(elapsed)
	return State{
		ElapsedSeconds: secs,
		Formatted:      FormatTime(secs),
		Status:         status,
		Color:          Color(status),
		ShowBreak:      elapsed >= BreakAfter && !t.dismissed,
	}
}

// Reset restarts the session and re-arms the break prompt.
func (t *Timer) Reset() State {
	t.mu.Lock()
	t.start = t.now()
	t.dismissed = false
	t.mu.Unlock()
	return t.State()
}

// DismissBreak hides the break prompt until the next Reset.
func (t *Timer) DismissBreak() State {
	t.mu.Lock()
	t.dismissed = true
	t.mu.Unlock()
	return t.State()
}

func StatusFor(elapsed time.Duration) Status {
	switch {
	case elapsed >= DangerAfter:
		return StatusDanger
	case elapsed >= WarnAfter:
		return StatusWarning
	default:
		return StatusSafe
	}
}

// FormatTime renders seconds as MM:SS. Minutes are not capped at 59.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func Color(s Status) string {
	switch s {
	case StatusWarning:
		return "#f59e0b"
	case StatusDanger:
		return "#ef4444"
	default:
		return "#10b981"
	}
}
