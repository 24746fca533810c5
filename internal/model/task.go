package model

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusOverdue    Status = "overdue"
)

// TitleMaxLen is the storage limit for task titles, in characters.
const TitleMaxLen = 200

// Task represents a single item in the planner.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null;default:''" json:"description"`
	Status      Status     `gorm:"size:20;not null;default:new;index" json:"status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	DueDate     *time.Time `json:"due_date"`
}

// Next returns the status a user toggle moves to.
// The cycle is new -> in_progress -> done -> new; overdue restarts at new.
func (s Status) Next() Status {
	switch s {
	case StatusNew:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	default:
		return StatusNew
	}
}

// Actionable reports whether the sweep may still flag the task as overdue.
func (s Status) Actionable() bool {
	return s == StatusNew || s == StatusInProgress
}

// Label is the human-readable status name shown in both front-ends.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "Новая"
	case StatusInProgress:
		return "В процессе"
	case StatusDone:
		return "Выполнена"
	case StatusOverdue:
		return "Просрочена"
	default:
		return string(s)
	}
}

// Icon is the emoji used for the status in chat lists.
func (s Status) Icon() string {
	switch s {
	case StatusInProgress:
		return "⏳"
	case StatusDone:
		return "✅"
	case StatusOverdue:
		return "⚠️"
	default:
		return "🆕"
	}
}

// IsOverdueAt reports whether the task matches the sweep predicate at now.
func (t Task) IsOverdueAt(now time.Time) bool {
	return t.DueDate != nil && !t.DueDate.After(now) && t.Status.Actionable()
}
