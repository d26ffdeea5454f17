package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/questlog/pkg/application"
	"github.com/felixgeelhaar/questlog/pkg/catalog"
	"github.com/felixgeelhaar/questlog/pkg/domain/events"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

type memStore struct {
	blobs   map[string][]byte
	writes  int
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, slot string, blob []byte) error {
	m.blobs[slot] = append([]byte(nil), blob...)
	m.writes++
	return nil
}

func (m *memStore) Load(_ context.Context, slot string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	blob, ok := m.blobs[slot]
	if !ok {
		return nil, quest.ErrNoSave
	}
	return blob, nil
}

type memJournal struct {
	records []*events.Record
}

func (m *memJournal) Append(rec *events.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memJournal) types() []string {
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.Type
	}
	return out
}

type world struct {
	catalog *catalog.Catalog
	coord   *quest.Coordinator
	service *application.QuestService
}

func newWorld(t *testing.T, store quest.SaveStore, opts ...application.QuestServiceOption) *world {
	t.Helper()
	d, err := catalog.Parse(catalog.Sample())
	require.NoError(t, err)
	c := catalog.Build(d, nil)
	coord := quest.NewCoordinator(
		quest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		quest.WithCatalog(c),
	)
	return &world{
		catalog: c,
		coord:   coord,
		service: application.NewQuestService(coord, c, store, "main", opts...),
	}
}

func TestQuestServiceFreshStart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	w := newWorld(t, store)

	require.NoError(t, w.service.Load(ctx))
	assert.True(t, w.coord.IsReady())
	assert.Zero(t, store.writes)

	require.NoError(t, w.service.StartObjective(ctx, "rescue"))
	assert.Equal(t, 1, store.writes)
	assert.Contains(t, string(store.blobs["main"]), `"rescue"`)

	st, err := w.service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rescue", st.Focused)
	require.Len(t, st.Active, 1)
	assert.Equal(t, quest.ObjectiveInProgress, st.Active[0].State)
	assert.Equal(t, []application.TaskStatus{{ID: "find-cell", State: quest.TaskInProgress}}, st.Active[0].Tasks)
}

func TestQuestServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	first := newWorld(t, store)
	require.NoError(t, first.service.Load(ctx))
	require.NoError(t, first.service.StartGroup(ctx, "chapter-1"))
	require.NoError(t, first.service.AddTask(ctx, "rescue", "pick-lock"))
	require.NoError(t, first.service.CompleteTask(ctx, "rescue", "pick-lock"))
	require.NoError(t, first.service.AddHint(ctx, "escape", "look-up"))

	want, err := first.service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rescue", "escape"}, []string{want.Active[0].ID, want.Active[1].ID})

	second := newWorld(t, store)
	require.NoError(t, second.service.Load(ctx))
	got, err := second.service.Status(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status after reload mismatch (-want +got):\n%s", diff)
	}
}

func TestQuestServiceObjectiveLifecycle(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newMemStore())
	require.NoError(t, w.service.Load(ctx))

	require.NoError(t, w.service.StartObjective(ctx, "explore"))
	require.NoError(t, w.service.CompleteObjective(ctx, "explore"))
	explore, _ := w.catalog.Objective("explore")
	assert.Equal(t, quest.ObjectiveComplete, explore.State())

	require.NoError(t, w.service.CancelObjectiveCompletion(ctx, "explore"))
	assert.Equal(t, quest.ObjectiveInProgress, explore.State())

	require.NoError(t, w.service.EndObjective(ctx, "explore"))
	assert.Equal(t, quest.ObjectiveCancelled, explore.State())
	assert.Empty(t, w.coord.ActiveObjectives())
}

func TestQuestServiceTaskCommands(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newMemStore())
	require.NoError(t, w.service.Load(ctx))
	require.NoError(t, w.service.StartObjective(ctx, "rescue"))

	rescue, _ := w.catalog.Objective("rescue")
	require.NoError(t, w.service.ReplaceTask(ctx, "rescue", "find-cell", "pick-lock"))
	findCell, _ := rescue.Task("find-cell")
	pickLock, _ := rescue.Task("pick-lock")
	assert.Equal(t, quest.TaskCompleted, findCell.State())
	assert.Equal(t, quest.TaskInProgress, pickLock.State())

	require.NoError(t, w.service.RemoveTask(ctx, "rescue", "pick-lock"))
	assert.Equal(t, quest.TaskNotStarted, pickLock.State())

	require.NoError(t, w.service.ResetTask(ctx, "rescue", "find-cell"))
	assert.Equal(t, quest.TaskNotStarted, findCell.State())
	assert.Empty(t, rescue.ActiveTasks())

	require.NoError(t, w.service.AddTask(ctx, "rescue", "break-bars"))
	require.NoError(t, w.service.CompleteTask(ctx, "rescue", "break-bars"))
	assert.True(t, rescue.IsCompleted())

	require.NoError(t, w.service.ResetTask(ctx, "rescue", "break-bars"))
	assert.Equal(t, quest.ObjectiveInProgress, rescue.State(), "resetting the completing task reopens the objective")
	assert.Empty(t, rescue.ActiveTasks())
	assert.Equal(t, []*quest.Objective{rescue}, w.coord.ActiveObjectives())
}

func TestQuestServiceHintCommands(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newMemStore())
	require.NoError(t, w.service.Load(ctx))
	require.NoError(t, w.service.StartObjective(ctx, "escape"))

	require.NoError(t, w.service.AddHint(ctx, "escape", "look-up"))
	escape, _ := w.catalog.Objective("escape")
	require.Len(t, escape.ActiveHints(), 1)

	require.NoError(t, w.service.RemoveHint(ctx, "escape", "look-up"))
	assert.Empty(t, escape.ActiveHints())
}

func TestQuestServiceErrorsDoNotSave(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	w := newWorld(t, store)
	require.NoError(t, w.service.Load(ctx))

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"unknown objective", func() error { return w.service.StartObjective(ctx, "dragon") }, quest.ErrUnknownObjective},
		{"unknown task", func() error { return w.service.AddTask(ctx, "rescue", "fly") }, application.ErrUnknownTask},
		{"unknown replacement", func() error { return w.service.ReplaceTask(ctx, "rescue", "find-cell", "fly") }, application.ErrUnknownTask},
		{"unknown hint", func() error { return w.service.AddHint(ctx, "escape", "shout") }, application.ErrUnknownHint},
		{"unknown group", func() error { return w.service.StartGroup(ctx, "chapter-9") }, application.ErrUnknownGroup},
		{"inactive parent", func() error { return w.service.AddTask(ctx, "rescue", "pick-lock") }, quest.ErrParentInactive},
		{"end unstarted", func() error { return w.service.EndObjective(ctx, "rescue") }, quest.ErrNotRegistered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.run(), tt.want)
		})
	}
	assert.Zero(t, store.writes)
}

func TestQuestServiceWaitsForLoad(t *testing.T) {
	w := newWorld(t, newMemStore(), application.WithReadyTimeout(20*time.Millisecond))

	err := w.service.StartObjective(context.Background(), "rescue")
	require.ErrorIs(t, err, quest.ErrNotReady)

	_, err = w.service.Status(context.Background())
	require.ErrorIs(t, err, quest.ErrNotReady)
}

func TestQuestServiceLoadFailures(t *testing.T) {
	ctx := context.Background()

	store := newMemStore()
	store.loadErr = errors.New("disk on fire")
	w := newWorld(t, store)
	require.ErrorContains(t, w.service.Load(ctx), "disk on fire")
	assert.False(t, w.coord.IsReady())

	store = newMemStore()
	store.blobs["main"] = []byte(`{"objectives":[{"id":"dragon","data":{"state":"in_progress","tasks":[],"hints":[]}}]}`)
	w = newWorld(t, store)
	require.ErrorIs(t, w.service.Load(ctx), quest.ErrUnknownObjective)
	assert.False(t, w.coord.IsReady())
}

func TestQuestServiceNext(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newMemStore())
	require.NoError(t, w.service.Load(ctx))
	require.NoError(t, w.service.StartGroup(ctx, "chapter-1"))

	next, err := w.service.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "escape", next.ID())
	assert.Equal(t, "escape", w.coord.FocusedObjective().ID())
}

func TestQuestServiceJournalsSaves(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	journal := &memJournal{}

	first := newWorld(t, store, application.WithJournal(journal))
	require.NoError(t, first.service.Load(ctx))
	require.NoError(t, first.service.StartObjective(ctx, "rescue"))

	second := newWorld(t, store, application.WithJournal(journal))
	require.NoError(t, second.service.Load(ctx))

	assert.Equal(t, []string{events.TypeSaveWritten, events.TypeSaveLoaded}, journal.types())
	assert.Equal(t, "main", journal.records[0].Metadata["slot"])
}
