package wiring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/config"
	"github.com/felixgeelhaar/questlog/internal/infrastructure/logging"
	"github.com/felixgeelhaar/questlog/internal/infrastructure/metrics"
	"github.com/felixgeelhaar/questlog/pkg/application"
	"github.com/felixgeelhaar/questlog/pkg/catalog"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
	"github.com/felixgeelhaar/questlog/pkg/i18n"
	"github.com/felixgeelhaar/questlog/pkg/storage"
	"github.com/felixgeelhaar/questlog/pkg/storage/sqlite"
)

// ErrNotInitialized indicates a root without a .questlog directory.
var ErrNotInitialized = errors.New("questlog workspace is not initialized")

// Workspace bundles everything a questctl command needs for one root.
type Workspace struct {
	Repo        *storage.FilesystemRepository
	Config      *config.Config
	Logger      *slog.Logger
	Locale      string
	Bundle      *i18n.Bundle
	Catalog     *catalog.Catalog
	Coordinator *quest.Coordinator
	Store       quest.SaveStore
	Journal     *storage.FileJournal
	Metrics     *metrics.Observer
	Service     *application.QuestService

	recorder *application.JournalRecorder
	closers  []func() error
}

// Init creates root/.questlog with a default config and the sample catalog.
// Existing files are kept unless force is set.
func Init(root string, force bool) error {
	repo := storage.NewFilesystemRepository(root)
	if err := repo.Initialize(); err != nil {
		return err
	}

	if force || !exists(repo, storage.ConfigFile) {
		if err := config.Save(root, config.Default()); err != nil {
			return err
		}
	}
	if force || !exists(repo, storage.CatalogFile) {
		if err := repo.WriteFile(storage.CatalogFile, catalog.Sample()); err != nil {
			return err
		}
	}
	return nil
}

// Override adjusts the loaded config before anything is built.
type Override func(*config.Config)

// Open assembles the workspace at root and loads the configured save slot.
// Logs go to logOut.
func Open(ctx context.Context, root string, logOut io.Writer, overrides ...Override) (*Workspace, error) {
	repo := storage.NewFilesystemRepository(root)
	if !repo.IsInitialized() {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		for _, o := range overrides {
			o(cfg)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger, err := logging.New(logOut, cfg.Log.Options())
	if err != nil {
		return nil, err
	}

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	locale := bundle.Match(cfg.Locale)

	def, err := repo.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	cat := catalog.Build(def, catalog.LocalizedResolver(bundle, locale))

	coord := quest.NewCoordinator(
		quest.WithLogger(logger),
		quest.WithCatalog(cat),
		quest.WithPinnedFocus(cfg.PinFocus),
	)
	ws := &Workspace{
		Repo:        repo,
		Config:      cfg,
		Logger:      logger,
		Locale:      locale,
		Bundle:      bundle,
		Catalog:     cat,
		Coordinator: coord,
	}

	if err := ws.openStore(); err != nil {
		return nil, err
	}
	journal, err := storage.NewFileJournal(repo.Dir())
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.Journal = journal

	ws.Metrics = metrics.NewObserver(prometheus.NewRegistry())
	ws.Metrics.Attach(ws.Coordinator)
	ws.recorder = application.NewJournalRecorder(journal, logger)
	ws.recorder.Attach(ws.Coordinator)

	ws.Service = application.NewQuestService(ws.Coordinator, cat, ws.Store, cfg.Slot,
		application.WithJournal(journal),
		application.WithServiceLogger(logger),
		application.WithReadyTimeout(cfg.ReadyTimeout),
	)
	if err := ws.Service.Load(ctx); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func (w *Workspace) openStore() error {
	switch w.Config.SaveBackend {
	case config.BackendSQLite:
		if err := w.Repo.Initialize(); err != nil {
			return err
		}
		db, err := sqlite.Open(filepath.Join(w.Repo.Dir(), storage.DatabaseFile))
		if err != nil {
			return err
		}
		w.Store = db
		w.closers = append(w.closers, db.Close)
	default:
		w.Store = w.Repo
	}
	return nil
}

// Slots lists the save slots of the configured backend.
func (w *Workspace) Slots(ctx context.Context) ([]string, error) {
	if db, ok := w.Store.(*sqlite.Store); ok {
		return db.Slots(ctx)
	}
	return w.Repo.Slots()
}

// DeleteSlot removes a save slot from the configured backend. Deleting a
// missing slot is not an error.
func (w *Workspace) DeleteSlot(ctx context.Context, slot string) error {
	if db, ok := w.Store.(*sqlite.Store); ok {
		return db.DeleteSlot(ctx, slot)
	}
	return w.Repo.DeleteSlot(slot)
}

// WatchPatterns returns the file name globs that back the configured slot.
func (w *Workspace) WatchPatterns() []string {
	if w.Config.SaveBackend == config.BackendSQLite {
		return []string{storage.DatabaseFile + "*"}
	}
	return []string{"save." + w.Config.Slot + ".json"}
}

// Title returns the display title of an objective: its literal title, then
// its localized title key, then its id.
func (w *Workspace) Title(id string) string {
	def, ok := w.Catalog.Definition(id)
	if !ok {
		return id
	}
	if def.Title != "" {
		return def.Title
	}
	if msg, ok := w.Bundle.Message(w.Locale, def.TitleKey); ok {
		return msg
	}
	return id
}

// Close detaches observers, shuts the coordinator down and releases the store.
func (w *Workspace) Close() error {
	if w.recorder != nil {
		w.recorder.Close()
	}
	w.Metrics.Close()
	w.Coordinator.Shutdown()

	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c())
	}
	w.closers = nil
	return errors.Join(errs...)
}

func exists(repo *storage.FilesystemRepository, name string) bool {
	path, err := repo.ResolvePath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
