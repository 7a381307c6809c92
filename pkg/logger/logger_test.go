package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" Warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("fatal"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("console"))
}

func TestNew_JSONWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{
		Level:  slog.LevelWarn,
		Format: FormatJSON,
		Output: &buf,
		Attrs:  []slog.Attr{slog.String("service", "lifequest-worker")},
	})

	log.Info("dropped")
	log.Warn("kept", Component("scheduler"), Err(errors.New("boom")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "lifequest-worker", rec["service"])
	assert.Equal(t, "scheduler", rec["component"])
	assert.Equal(t, "boom", rec["error"])
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := Discard()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}
