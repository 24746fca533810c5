package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-planner/internal/model"
)

// ErrTaskNotFound is returned when no task has the requested id.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles CRUD for tasks.
// Due dates are stored and returned in loc.
type TaskRepository struct {
	db  *gorm.DB
	loc *time.Location
}

func NewTaskRepository(db *gorm.DB, loc *time.Location) *TaskRepository {
	if loc == nil {
		loc = time.Local
	}
	return &TaskRepository{db: db, loc: loc}
}

// Location is the zone due dates are normalized to.
func (r *TaskRepository) Location() *time.Location {
	return r.loc
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	r.normalize(task)
	if task.Status == "" {
		task.Status = model.StatusNew
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	r.localize(task)
	return nil
}

// List returns tasks newest first. limit <= 0 means no cap.
func (r *TaskRepository) List(ctx context.Context, limit int) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	r.localizeAll(tasks)
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		r.localize(&task)
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrTaskNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Save writes every column of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	r.normalize(task)
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	r.localize(task)
	return nil
}

// Delete removes a task and reports whether a row existed.
func (r *TaskRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListPendingWithDeadline returns tasks that have a due date and are still new or in progress.
func (r *TaskRepository) ListPendingWithDeadline(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND status IN ?", []model.Status{model.StatusNew, model.StatusInProgress}).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	r.localizeAll(tasks)
	return tasks, nil
}

// ListOpenWithDeadline returns tasks that have a due date and are not done.
func (r *TaskRepository) ListOpenWithDeadline(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND status <> ?", model.StatusDone).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	r.localizeAll(tasks)
	return tasks, nil
}

// MarkOverdue flips a task to overdue unless a user already moved it out of new/in_progress.
// It reports whether the row changed.
func (r *TaskRepository) MarkOverdue(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, []model.Status{model.StatusNew, model.StatusInProgress}).
		Update("status", model.StatusOverdue)
	if res.Error != nil {
		return false, fmt.Errorf("mark overdue: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepository) normalize(task *model.Task) {
	if task.DueDate != nil {
		due := task.DueDate.In(r.loc)
		task.DueDate = &due
	}
}

func (r *TaskRepository) localize(task *model.Task) {
	r.normalize(task)
	task.CreatedAt = task.CreatedAt.In(r.loc)
}

func (r *TaskRepository) localizeAll(tasks []model.Task) {
	for i := range tasks {
		r.localize(&tasks[i])
	}
}
