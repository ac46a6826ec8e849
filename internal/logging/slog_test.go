package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "session checked", "session_id", "s1")
	log.Info(ctx, "document uploaded", "size", 42)
	log.Warn(ctx, "login rejected", "reason", "locked")
	log.Error(ctx, "audit write failed", "action", "FILE_UPLOAD")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)

	want := []struct{ level, msg, key string }{
		{"DEBUG", "session checked", "session_id"},
		{"INFO", "document uploaded", "size"},
		{"WARN", "login rejected", "reason"},
		{"ERROR", "audit write failed", "action"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, lines[i]["level"])
		assert.Equal(t, w.msg, lines[i]["msg"])
		assert.Contains(t, lines[i], w.key)
	}
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	base.With("module", "documents").Info(context.TODO(), "shared", "reviewer_id", "r1")
	base.Info(context.TODO(), "plain")

	out := buf.String()
	assert.Contains(t, out, "module=documents")
	assert.Contains(t, out, "reviewer_id=r1")
	assert.Equal(t, 1, strings.Count(out, "module=documents"))
}

func TestNewJSONLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelInfo)

	log.Debug(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestNop(t *testing.T) {
	var l Logger = Nop{}
	assert.NotPanics(t, func() {
		l.With("k", "v").Error(context.Background(), "ignored")
	})
}
