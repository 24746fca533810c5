// Package app wires storage, services and front-ends into one running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"task-planner/internal/bot"
	"task-planner/internal/config"
	"task-planner/internal/conversation"
	"task-planner/internal/repository"
	"task-planner/internal/service"
	"task-planner/internal/web"
)

const purgeInterval = time.Minute

// App is the explicit application context shared by every entry point.
type App struct {
	cfg config.Config
	db  *gorm.DB

	Tasks     *service.TaskService
	Reminders *service.ReminderService
	Flow      *conversation.Flow
	Scheduler *service.SchedulerService
}

// New opens storage and builds the services. Storage errors are fatal to startup.
func New(cfg config.Config) (*App, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	taskRepo := repository.NewTaskRepository(db, cfg.Location)
	taskSvc := service.NewTaskService(taskRepo)

	return &App{
		cfg:       cfg,
		db:        db,
		Tasks:     taskSvc,
		Reminders: service.NewReminderService(taskRepo),
		Flow:      conversation.New(taskSvc, cfg.Location, cfg.ConversationTTL),
		Scheduler: service.NewSchedulerService(cfg.Location),
	}, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunBot polls Telegram and runs the background jobs until ctx is cancelled.
func (a *App) RunBot(ctx context.Context) error {
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}
	api, err := bot.Dial(a.cfg.TelegramToken)
	if err != nil {
		return err
	}

	telegramBot := bot.New(api, a.Tasks, a.Reminders, a.Flow, bot.Options{
		NotifyChatID: a.cfg.NotifyChatID,
		WebBaseURL:   a.cfg.WebBaseURL,
		Location:     a.cfg.Location,
	})

	if err := a.ScheduleJobs(ctx, telegramBot); err != nil {
		return err
	}
	a.Scheduler.Start()
	defer a.Scheduler.Stop()

	log.Info().Msg("task planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}
	return nil
}

// RunWeb serves the web front-end until ctx is cancelled.
func (a *App) RunWeb(ctx context.Context) error {
	return web.NewServer(a.Tasks).Run(ctx, a.cfg.WebAddr)
}

// Serve runs the bot and the web front-end together; the first failure stops both.
func (a *App) Serve(ctx context.Context) error {
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- a.RunWeb(ctx) }()
	go func() { errCh <- a.RunBot(ctx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
		cancel()
	}
	return firstErr
}

// ScheduleJobs registers the deadline sweep and the conversation purge.
// The sweep is skipped when no notification chat is configured.
func (a *App) ScheduleJobs(ctx context.Context, notifier service.Notifier) error {
	if a.cfg.NotifyChatID != 0 {
		sweep := service.NewSweepService(a.Tasks, notifier)
		// Only shutdown cancels a tick; the backlog is always processed in full.
		if _, err := a.Scheduler.ScheduleInterval(a.cfg.SweepInterval, func() {
			if _, err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("deadline sweep")
			}
		}); err != nil {
			return fmt.Errorf("schedule sweep: %w", err)
		}
		log.Info().Dur("interval", a.cfg.SweepInterval).Int64("chat", a.cfg.NotifyChatID).Msg("deadline sweep scheduled")
	} else {
		log.Warn().Msg("TELEGRAM_CHAT_ID is not set, deadline notifications are disabled")
	}

	if a.cfg.ConversationTTL > 0 {
		if _, err := a.Scheduler.ScheduleInterval(purgeInterval, func() {
			if n := a.Flow.Expire(); n > 0 {
				log.Debug().Int("expired", n).Msg("idle conversations dropped")
			}
		}); err != nil {
			return fmt.Errorf("schedule conversation purge: %w", err)
		}
	}
	return nil
}

// SweepOnce runs a single deadline sweep against the configured chat.
func (a *App) SweepOnce(ctx context.Context) (service.SweepResult, error) {
	if err := a.cfg.RequireTelegram(); err != nil {
		return service.SweepResult{}, err
	}
	if a.cfg.NotifyChatID == 0 {
		return service.SweepResult{}, errors.New("TELEGRAM_CHAT_ID is required for the sweep")
	}
	api, err := bot.Dial(a.cfg.TelegramToken)
	if err != nil {
		return service.SweepResult{}, err
	}
	notifier := bot.New(api, a.Tasks, a.Reminders, a.Flow, bot.Options{
		NotifyChatID: a.cfg.NotifyChatID,
		Location:     a.cfg.Location,
	})
	return service.NewSweepService(a.Tasks, notifier).Run(ctx)
}
