package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

func TestNewFiltersCategories(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Categories: []string{"focus"}})
	require.NoError(t, err)

	logger.Info("focus changed", quest.CategoryFocus.Attr())
	logger.Info("task added", quest.CategoryTask.Attr())
	logger.Info("untagged")
	logger.With(quest.CategoryHint.Attr()).Info("hint added")
	logger.With(quest.CategoryFocus.Attr()).Info("focus via With")

	out := buf.String()
	assert.Contains(t, out, "focus changed")
	assert.Contains(t, out, "untagged")
	assert.Contains(t, out, "focus via With")
	assert.NotContains(t, out, "task added")
	assert.NotContains(t, out, "hint added")
}

func TestNewJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: LevelWarn, Format: FormatJSON})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", quest.CategoryObjectiveStart.Attr(), "objective", "rescue")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "objective_start", rec["category"])
	assert.Equal(t, "rescue", rec["objective"])
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	require.Error(t, err)
	_, err = New(&bytes.Buffer{}, Options{Format: "xml"})
	require.Error(t, err)
	_, err = New(&bytes.Buffer{}, Options{Categories: []string{"combat"}})
	require.Error(t, err)
}

func TestCategoryFilterWithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Categories: []string{"task"}})
	require.NoError(t, err)

	logger.WithGroup("ctx").Info("grouped", quest.CategoryTask.Attr())
	assert.Contains(t, buf.String(), "grouped")
}

func TestLevelFlagValue(t *testing.T) {
	var l Level
	require.NoError(t, l.Set("debug"))
	assert.Equal(t, "debug", l.String())
	assert.Equal(t, "log-level", l.Type())
	require.Error(t, l.Set("verbose"))

	assert.True(t, Level("").Valid())
	assert.False(t, Level("verbose").Valid())
}
