package logger

import (
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

// Init configures the global zerolog logger.
func Init(level, format string) {
	InitWriter(os.Stdout, level, format)
}

// InitWriter is Init with an explicit output.
func InitWriter(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05", NoColor: true}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// printfWriter feeds gorm's printf-style logger into zerolog at warn level.
type printfWriter struct {
	l zerolog.Logger
}

func (w printfWriter) Printf(format string, args ...interface{}) {
	w.l.Warn().Msgf(format, args...)
}

// Gorm returns a gorm logger backed by the global zerolog logger.
func Gorm() gormlogger.Interface {
	return gormlogger.New(
		printfWriter{l: log.Logger.With().Str("component", "gorm").Logger()},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type cronLogger struct {
	l zerolog.Logger
}

// Cron returns a cron.Logger that writes through zerolog.
func Cron() cron.Logger {
	return cronLogger{l: log.Logger.With().Str("component", "cron").Logger()}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
