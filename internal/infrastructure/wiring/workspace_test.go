package wiring

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/config"
	"github.com/felixgeelhaar/questlog/pkg/domain/events"
	"github.com/felixgeelhaar/questlog/pkg/storage"
)

func TestOpenRequiresInit(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitKeepsExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Init(root, false))

	cfg := config.Default()
	cfg.Slot = "custom"
	require.NoError(t, config.Save(root, cfg))
	require.NoError(t, Init(root, false))

	loaded, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "custom", loaded.Slot)

	require.NoError(t, Init(root, true))
	loaded, err = config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.Slot)
}

func TestOpenFileBackendPersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, Init(root, false))

	var logs bytes.Buffer
	ws, err := Open(ctx, root, &logs)
	require.NoError(t, err)
	require.NoError(t, ws.Service.StartGroup(ctx, "chapter-1"))
	require.NoError(t, ws.Close())

	_, err = os.Stat(filepath.Join(root, storage.QuestlogDir, "save.main.json"))
	require.NoError(t, err)

	again, err := Open(ctx, root, &logs)
	require.NoError(t, err)
	defer again.Close() //nolint:errcheck // test cleanup

	st, err := again.Service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rescue", st.Focused)
	assert.Len(t, st.Active, 2)

	started, err := again.Journal.LoadByType(events.TypeObjectiveStarted)
	require.NoError(t, err)
	assert.Len(t, started, 2)
	violations, err := again.Journal.VerifyIntegrity()
	require.NoError(t, err)
	assert.Empty(t, violations)

	assert.Contains(t, logs.String(), "objective started")
}

func TestOpenSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, Init(root, false))
	t.Setenv("QUESTLOG_SAVE_BACKEND", "sqlite")
	t.Setenv("QUESTLOG_SLOT", "run2")

	ws, err := Open(ctx, root, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, ws.Service.StartObjective(ctx, "explore"))
	assert.Equal(t, []string{"saves.db*"}, ws.WatchPatterns())
	require.NoError(t, ws.Close())

	again, err := Open(ctx, root, &bytes.Buffer{})
	require.NoError(t, err)
	defer again.Close() //nolint:errcheck // test cleanup
	explore, ok := again.Coordinator.Objective("explore")
	require.True(t, ok)
	assert.True(t, explore.IsActive())
}

func TestOpenLocalizesHints(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, Init(root, false))
	t.Setenv("QUESTLOG_LOCALE", "de")

	ws, err := Open(ctx, root, &bytes.Buffer{})
	require.NoError(t, err)
	defer ws.Close() //nolint:errcheck // test cleanup

	assert.Equal(t, "de-DE", ws.Locale)
	escape, _ := ws.Catalog.Objective("escape")
	hint, _ := escape.Hint("look-up")
	assert.Equal(t, "Nach oben schauen", hint.Name())
	assert.Equal(t, []string{"save.main.json"}, ws.WatchPatterns())
	assert.NotEqual(t, "escape", ws.Title("escape"))
	assert.Equal(t, "dragon", ws.Title("dragon"))
}

func TestOpenOverrides(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, Init(root, false))

	ws, err := Open(ctx, root, &bytes.Buffer{}, func(c *config.Config) { c.Slot = "override" })
	require.NoError(t, err)
	assert.Equal(t, "override", ws.Service.Slot())
	require.NoError(t, ws.Close())

	_, err = Open(ctx, root, &bytes.Buffer{}, func(c *config.Config) { c.Slot = "../bad" })
	require.ErrorIs(t, err, storage.ErrInvalidSlot)
}

func TestOpenRejectsCorruptSave(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, Init(root, false))
	repo := storage.NewFilesystemRepository(root)
	require.NoError(t, repo.Save(ctx, "main", []byte(`{"objectives":"nope"}`)))

	_, err := Open(ctx, root, &bytes.Buffer{})
	require.Error(t, err)
}
