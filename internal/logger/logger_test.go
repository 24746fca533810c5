package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")

	log.Debug().Msg("hidden")
	log.Info().Str("task", "7").Msg("visible")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "7", entry["task"])
	assert.Equal(t, "info", entry["level"])
}

func TestCronLoggerError(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", "json")

	Cron().Error(errors.New("boom"), "job failed", "entry", 3)

	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"entry":3`)
	assert.Contains(t, out, `"component":"cron"`)
}

func TestGormWriterUsesWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")

	printfWriter{l: log.Logger}.Printf("slow query %d", 42)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "slow query 42")
}
