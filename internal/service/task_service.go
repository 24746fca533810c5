package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"task-planner/internal/model"
	"task-planner/internal/repository"
)

// Input layouts for naive date/time text. Day, month and hour may be one or two digits in chat input.
const (
	ChatDateLayout = "2.1.2006 15:04"
	WebDateLayout  = "2006-01-02T15:04"
)

// TaskInput represents data required to create or edit a task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// TaskService is the query/command surface shared by the bot, the web UI and the sweep.
// Mutations are serialized so no two storage writes interleave.
type TaskService struct {
	repo *repository.TaskRepository
	mu   sync.Mutex
}

func NewTaskService(repo *repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

// Location is the configured zone for naive input and display.
func (s *TaskService) Location() *time.Location {
	return s.repo.Location()
}

// ParseLocal interprets naive date/time text in the configured zone.
func (s *TaskService) ParseLocal(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, strings.TrimSpace(value), s.repo.Location())
}

// List returns tasks newest first; limit <= 0 means all of them.
func (s *TaskService) List(ctx context.Context, limit int) ([]model.Task, error) {
	return s.repo.List(ctx, limit)
}

// Get returns the task or repository.ErrTaskNotFound.
func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *TaskService) Create(ctx context.Context, input TaskInput) (*model.Task, error) {
	task := model.Task{
		Title:       clampTitle(input.Title),
		Description: input.Description,
		Status:      model.StatusNew,
		DueDate:     input.DueDate,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update replaces title, description and due date of an existing task.
func (s *TaskService) Update(ctx context.Context, id uint, input TaskInput) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Title = clampTitle(input.Title)
	task.Description = input.Description
	task.DueDate = input.DueDate
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task. false means there was nothing to delete.
func (s *TaskService) Delete(ctx context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Delete(ctx, id)
}

// CycleStatus advances the task along new -> in_progress -> done -> new.
func (s *TaskService) CycleStatus(ctx context.Context, id uint) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = task.Status.Next()
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// PendingWithDeadline lists tasks the sweep has to look at.
func (s *TaskService) PendingWithDeadline(ctx context.Context) ([]model.Task, error) {
	return s.repo.ListPendingWithDeadline(ctx)
}

// MarkOverdue flips an actionable task to overdue.
func (s *TaskService) MarkOverdue(ctx context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.MarkOverdue(ctx, id)
}

func clampTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= model.TitleMaxLen {
		return title
	}
	return string(runes[:model.TitleMaxLen])
}
