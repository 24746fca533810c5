package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"task-planner/internal/model"
	"task-planner/internal/repository"
	"task-planner/internal/service"
)

type taskView struct {
	ID          uint
	Title       string
	Description string
	Status      model.Status
	StatusLabel string
	DueDisplay  string
	DueInput    string
	Created     string
	Overdue     bool
}

type formView struct {
	Heading     string
	Action      string
	Title       string
	Description string
	DueInput    string
	Error       string
}

func (s *Server) view(task model.Task, now time.Time) taskView {
	loc := s.tasks.Location()
	v := taskView{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		StatusLabel: task.Status.Label(),
		Created:     task.CreatedAt.In(loc).Format(service.DisplayLayout),
		Overdue:     task.Status == model.StatusOverdue || task.IsOverdueAt(now),
	}
	if task.DueDate != nil {
		v.DueDisplay = task.DueDate.In(loc).Format(service.DisplayLayout)
		v.DueInput = task.DueDate.In(loc).Format(service.WebDateLayout)
	}
	return v
}

// Web handlers

func (s *Server) handleIndex(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), 0)
	if err != nil {
		s.serverError(c, err)
		return
	}

	counts := make(map[model.Status]int)
	for _, task := range tasks {
		counts[task.Status]++
	}
	c.HTML(http.StatusOK, "landing.html", gin.H{
		"total":      len(tasks),
		"new":        counts[model.StatusNew],
		"inProgress": counts[model.StatusInProgress],
		"done":       counts[model.StatusDone],
		"overdue":    counts[model.StatusOverdue],
	})
}

func (s *Server) handleList(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), 0)
	if err != nil {
		s.serverError(c, err)
		return
	}

	now := time.Now()
	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, s.view(task, now))
	}
	c.HTML(http.StatusOK, "task_list.html", gin.H{
		"tasks": views,
		"count": len(views),
	})
}

func (s *Server) handleCreateForm(c *gin.Context) {
	c.HTML(http.StatusOK, "task_form.html", formView{Heading: "Новая задача", Action: "/tasks/create/"})
}

func (s *Server) handleCreate(c *gin.Context) {
	form := formView{
		Heading:     "Новая задача",
		Action:      "/tasks/create/",
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		DueInput:    strings.TrimSpace(c.PostForm("due_date")),
	}
	if form.Title == "" {
		form.Error = "Название обязательно"
		c.HTML(http.StatusBadRequest, "task_form.html", form)
		return
	}

	var due *time.Time
	if form.DueInput != "" {
		if parsed, err := s.tasks.ParseLocal(service.WebDateLayout, form.DueInput); err == nil {
			due = &parsed
		}
	}

	task, err := s.tasks.Create(c.Request.Context(), service.TaskInput{
		Title:       form.Title,
		Description: form.Description,
		DueDate:     due,
	})
	if err != nil {
		s.serverError(c, err)
		return
	}
	log.Info().Uint("task", task.ID).Msg("task created via web")
	c.Redirect(http.StatusFound, "/tasks/")
}

func (s *Server) handleEditForm(c *gin.Context) {
	task, ok := s.loadTask(c)
	if !ok {
		return
	}
	v := s.view(*task, time.Now())
	c.HTML(http.StatusOK, "task_form.html", formView{
		Heading:     "Редактирование задачи",
		Action:      "/tasks/" + strconv.FormatUint(uint64(task.ID), 10) + "/edit/",
		Title:       task.Title,
		Description: task.Description,
		DueInput:    v.DueInput,
	})
}

func (s *Server) handleEdit(c *gin.Context) {
	task, ok := s.loadTask(c)
	if !ok {
		return
	}

	form := formView{
		Heading:     "Редактирование задачи",
		Action:      c.Request.URL.Path,
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		DueInput:    strings.TrimSpace(c.PostForm("due_date")),
	}
	if form.Title == "" {
		form.Error = "Название обязательно"
		c.HTML(http.StatusBadRequest, "task_form.html", form)
		return
	}

	// Empty clears the deadline; an unparsable value keeps the old one.
	due := task.DueDate
	if form.DueInput == "" {
		due = nil
	} else if parsed, err := s.tasks.ParseLocal(service.WebDateLayout, form.DueInput); err == nil {
		due = &parsed
	}

	_, err := s.tasks.Update(c.Request.Context(), task.ID, service.TaskInput{
		Title:       form.Title,
		Description: form.Description,
		DueDate:     due,
	})
	if errors.Is(err, repository.ErrTaskNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/tasks/")
}

func (s *Server) handleDeleteConfirm(c *gin.Context) {
	task, ok := s.loadTask(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "task_confirm_delete.html", gin.H{"task": s.view(*task, time.Now())})
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.notFound(c)
		return
	}
	existed, err := s.tasks.Delete(c.Request.Context(), id)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if !existed {
		s.notFound(c)
		return
	}
	log.Info().Uint("task", id).Msg("task deleted via web")
	c.Redirect(http.StatusFound, "/tasks/")
}

func (s *Server) handleToggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.notFound(c)
		return
	}
	_, err := s.tasks.CycleStatus(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/tasks/")
}

// API handlers

func (s *Server) handleAPIList(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleAPIGet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// loadTask resolves the :id parameter, rendering 404 when it does not exist.
func (s *Server) loadTask(c *gin.Context) (*model.Task, bool) {
	id, ok := parseID(c)
	if !ok {
		s.notFound(c)
		return nil, false
	}
	task, err := s.tasks.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		s.notFound(c)
		return nil, false
	}
	if err != nil {
		s.serverError(c, err)
		return nil, false
	}
	return task, true
}

func (s *Server) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", gin.H{"heading": "Задача не найдена", "path": c.Request.URL.Path})
}

func (s *Server) serverError(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{"heading": "Внутренняя ошибка, попробуйте позже"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
