package service

import (
	"context"
	"time"

	"task-planner/internal/model"
	"task-planner/internal/repository"
)

// UpcomingWindow is how far ahead a deadline counts as "soon".
const UpcomingWindow = 24 * time.Hour

// Reminders splits open tasks with deadlines into overdue and upcoming.
type Reminders struct {
	Overdue  []model.Task
	Upcoming []model.Task
}

// Empty reports whether there is nothing to remind about.
func (r Reminders) Empty() bool {
	return len(r.Overdue) == 0 && len(r.Upcoming) == 0
}

// ReminderService builds the on-demand reminders view.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

func (s *ReminderService) Reminders(ctx context.Context, now time.Time) (Reminders, error) {
	tasks, err := s.taskRepo.ListOpenWithDeadline(ctx)
	if err != nil {
		return Reminders{}, err
	}

	var out Reminders
	for _, task := range tasks {
		due := *task.DueDate
		switch {
		case !due.After(now):
			out.Overdue = append(out.Overdue, task)
		case due.Sub(now) < UpcomingWindow:
			out.Upcoming = append(out.Upcoming, task)
		}
	}
	return out, nil
}

// HoursLeft is the whole number of hours until due, as shown next to upcoming tasks.
func HoursLeft(due, now time.Time) int {
	return int(due.Sub(now) / time.Hour)
}
