package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
	"github.com/felixgeelhaar/questlog/pkg/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Save(ctx, "main", []byte(`{"objectives":[]}`)))
	blob, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.JSONEq(t, `{"objectives":[]}`, string(blob))

	updated, err := s.UpdatedAt(ctx, "main")
	require.NoError(t, err)
	assert.True(t, fixed.Equal(updated))

	s.now = func() time.Time { return fixed.Add(time.Hour) }
	require.NoError(t, s.Save(ctx, "main", []byte(`{"objectives":[{"id":"a","data":{}}]}`)))
	blob, err = s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"id":"a"`)

	updated, err = s.UpdatedAt(ctx, "main")
	require.NoError(t, err)
	assert.True(t, fixed.Add(time.Hour).Equal(updated))
}

func TestLoadMissingSlot(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background(), "main")
	require.ErrorIs(t, err, quest.ErrNoSave)
	_, err = s.UpdatedAt(context.Background(), "main")
	require.ErrorIs(t, err, quest.ErrNoSave)
}

func TestInvalidSlot(t *testing.T) {
	s := openTestStore(t)

	require.ErrorIs(t, s.Save(context.Background(), "../main", []byte("{}")), storage.ErrInvalidSlot)
	_, err := s.Load(context.Background(), "")
	require.ErrorIs(t, err, storage.ErrInvalidSlot)
}

func TestSlotsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "zeta", []byte("{}")))
	require.NoError(t, s.Save(ctx, "alpha", []byte("{}")))

	slots, err := s.Slots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, slots)

	require.NoError(t, s.DeleteSlot(ctx, "alpha"))
	require.NoError(t, s.DeleteSlot(ctx, "alpha"))
	slots, err = s.Slots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta"}, slots)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saves.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "main", []byte("{}")))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck // test cleanup

	blob, err := reopened.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), blob)
}

func TestNilStore(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Error(t, s.Save(context.Background(), "main", nil))
}

func TestCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Save(ctx, "main", []byte("{}")), context.Canceled)
	_, err := s.Load(ctx, "main")
	require.ErrorIs(t, err, context.Canceled)
}
