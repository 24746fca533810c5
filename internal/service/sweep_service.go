package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"task-planner/internal/model"
)

// DisplayLayout is how due dates are rendered in notifications.
const DisplayLayout = "02.01.2006 15:04"

// NoDescription replaces an empty description in notifications.
const NoDescription = "Нет описания"

// ErrDelivery wraps failures to push a notification out.
var ErrDelivery = errors.New("notification delivery failed")

// Notifier pushes a formatted message to the configured recipient.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// SweepResult summarizes one sweep tick.
type SweepResult struct {
	RunID    string
	Checked  int
	Notified int
	Failed   int
}

// SweepService finds tasks whose deadline passed, notifies once and marks them overdue.
type SweepService struct {
	tasks    *TaskService
	notifier Notifier
	now      func() time.Time
}

func NewSweepService(tasks *TaskService, notifier Notifier) *SweepService {
	return &SweepService{tasks: tasks, notifier: notifier, now: time.Now}
}

// Run executes one tick. Per-task failures are logged and left for the next tick.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	res := SweepResult{RunID: uuid.NewString()}
	logger := log.With().Str("component", "sweep").Str("run", res.RunID).Logger()

	tasks, err := s.tasks.PendingWithDeadline(ctx)
	if err != nil {
		return res, fmt.Errorf("load pending tasks: %w", err)
	}

	now := s.now()
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !task.IsOverdueAt(now) {
			continue
		}
		res.Checked++

		text := FormatOverdueNotification(task, s.tasks.Location())
		if err := s.notifier.Notify(ctx, text); err != nil {
			res.Failed++
			logger.Error().Err(err).Uint("task", task.ID).Msg("send overdue notification")
			continue
		}

		// A sent notification is always followed by its status write.
		changed, err := s.tasks.MarkOverdue(context.WithoutCancel(ctx), task.ID)
		if err != nil {
			// Already notified; the next tick will notify again.
			res.Failed++
			logger.Error().Err(err).Uint("task", task.ID).Msg("mark task overdue")
			continue
		}
		res.Notified++
		logger.Info().Uint("task", task.ID).Bool("status_changed", changed).Str("title", task.Title).Msg("overdue notification sent")
	}

	if res.Checked > 0 {
		logger.Info().Int("checked", res.Checked).Int("notified", res.Notified).Int("failed", res.Failed).Msg("sweep finished")
	}
	return res, nil
}

// FormatOverdueNotification renders the HTML message sent when a deadline passes.
func FormatOverdueNotification(task model.Task, loc *time.Location) string {
	description := strings.TrimSpace(task.Description)
	if description == "" {
		description = NoDescription
	}

	var due string
	if task.DueDate != nil {
		due = task.DueDate.In(loc).Format(DisplayLayout)
	}

	var b strings.Builder
	b.WriteString("⏰ <b>Дедлайн наступил!</b>\n\n")
	b.WriteString(fmt.Sprintf("📝 <b>Задача:</b> %s\n\n", html.EscapeString(task.Title)))
	b.WriteString(fmt.Sprintf("📄 <b>Описание:</b>\n%s\n\n", html.EscapeString(description)))
	b.WriteString(fmt.Sprintf("📅 <b>Срок:</b> %s", due))
	return b.String()
}
