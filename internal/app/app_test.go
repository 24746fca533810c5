package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-planner/internal/config"
	"task-planner/internal/service"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error { return nil }

func newTestApp(t *testing.T, env map[string]string) *App {
	t.Helper()
	if _, ok := env["DATABASE_URL"]; !ok {
		env["DATABASE_URL"] = filepath.Join(t.TempDir(), "app.db")
	}
	cfg, err := config.FromEnv(func(key string) string { return env[key] })
	require.NoError(t, err)

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestScheduleJobsWithoutChat(t *testing.T) {
	a := newTestApp(t, map[string]string{})
	require.NoError(t, a.ScheduleJobs(context.Background(), nopNotifier{}))
	assert.Equal(t, 1, a.Scheduler.Entries(), "only the conversation purge runs")
}

func TestScheduleJobsWithChat(t *testing.T) {
	a := newTestApp(t, map[string]string{"TELEGRAM_CHAT_ID": "12345"})
	require.NoError(t, a.ScheduleJobs(context.Background(), nopNotifier{}))
	assert.Equal(t, 2, a.Scheduler.Entries())
}

func TestBotRequiresToken(t *testing.T) {
	a := newTestApp(t, map[string]string{})
	assert.ErrorIs(t, a.RunBot(context.Background()), config.ErrMissingToken)
	assert.ErrorIs(t, a.Serve(context.Background()), config.ErrMissingToken)
}

func TestRunWebStopsOnCancel(t *testing.T) {
	a := newTestApp(t, map[string]string{"WEB_ADDR": "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunWeb(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("web server did not stop")
	}
}

func TestServicesShareStorage(t *testing.T) {
	loc := "Europe/Moscow"
	a := newTestApp(t, map[string]string{"TIME_ZONE": loc})
	ctx := context.Background()

	due, err := a.Tasks.ParseLocal(service.ChatDateLayout, "25.01.2026 14:30")
	require.NoError(t, err)
	_, err = a.Tasks.Create(ctx, service.TaskInput{Title: "shared", DueDate: &due})
	require.NoError(t, err)

	reminders, err := a.Reminders.Reminders(ctx, due.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, reminders.Upcoming, 1)
	assert.Equal(t, "shared", reminders.Upcoming[0].Title)
	assert.Equal(t, loc, reminders.Upcoming[0].DueDate.Location().String())
}
