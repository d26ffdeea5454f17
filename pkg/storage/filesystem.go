package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/questlog/pkg/catalog"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

const QuestlogDir = ".questlog"
const ConfigFile = "config.yaml"
const CatalogFile = "catalog.yaml"
const JournalFile = "events.jsonl"
const DatabaseFile = "saves.db"

const savePrefix = "save."
const saveSuffix = ".json"

// ErrInvalidSlot indicates a save slot name that cannot be used as a file name.
var ErrInvalidSlot = errors.New("invalid save slot name")

// FilesystemRepository stores a questlog workspace under root/.questlog. It
// implements quest.SaveStore with one JSON file per slot.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// Dir returns the .questlog directory.
func (r *FilesystemRepository) Dir() string {
	return filepath.Join(r.root, QuestlogDir)
}

// ResolvePath ensures the path is within the .questlog directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := r.Dir()
	fullPath := filepath.Join(baseDir, filename)
	cleanPath := filepath.Clean(fullPath)

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(r.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", QuestlogDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.Dir())
	return err == nil
}

// SaveCatalog writes the objective catalog to .questlog/catalog.yaml.
func (r *FilesystemRepository) SaveCatalog(d *catalog.Definition) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return r.WriteFile(CatalogFile, data)
}

// LoadCatalog reads and validates .questlog/catalog.yaml.
func (r *FilesystemRepository) LoadCatalog(ctx context.Context) (*catalog.Definition, error) {
	data, err := r.readWithRetry(ctx, CatalogFile)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", fs.ErrNotExist)
	}
	return catalog.Parse(data)
}

// WriteFile atomically replaces a file inside .questlog.
func (r *FilesystemRepository) WriteFile(filename string, data []byte) error {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return err
	}
	if err := r.Initialize(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.Dir(), "."+filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	// G306: Use 0600 for files
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}

// Save implements quest.SaveStore.
func (r *FilesystemRepository) Save(ctx context.Context, slot string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := saveFileName(slot)
	if err != nil {
		return err
	}
	return r.WriteFile(name, blob)
}

// Load implements quest.SaveStore.
func (r *FilesystemRepository) Load(ctx context.Context, slot string) ([]byte, error) {
	name, err := saveFileName(slot)
	if err != nil {
		return nil, err
	}
	data, err := r.readWithRetry(ctx, name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("slot %s: %w", slot, quest.ErrNoSave)
	}
	return data, nil
}

// Slots lists the saved slot names, sorted.
func (r *FilesystemRepository) Slots() ([]string, error) {
	entries, err := os.ReadDir(r.Dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	var slots []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, savePrefix) || !strings.HasSuffix(name, saveSuffix) {
			continue
		}
		slots = append(slots, strings.TrimSuffix(strings.TrimPrefix(name, savePrefix), saveSuffix))
	}
	sort.Strings(slots)
	return slots, nil
}

// DeleteSlot removes a saved slot. Deleting a missing slot is not an error.
func (r *FilesystemRepository) DeleteSlot(slot string) error {
	path, err := r.SavePath(slot)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}

// SavePath returns the file backing slot.
func (r *FilesystemRepository) SavePath(slot string) (string, error) {
	name, err := saveFileName(slot)
	if err != nil {
		return "", err
	}
	return r.ResolvePath(name)
}

// readWithRetry returns nil data and no error when the file does not exist.
func (r *FilesystemRepository) readWithRetry(ctx context.Context, filename string) ([]byte, error) {
	path, err := r.ResolvePath(filename)
	if err != nil {
		return nil, err
	}

	missing := false
	retryer := retry.New[[]byte](r.retryConfig)
	data, err := retryer.Do(ctx, func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			missing = true
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, nil
	}
	return data, nil
}

// ValidateSlot checks slot is usable as a save slot name: letters, digits,
// dashes and underscores, starting with a letter or digit.
func ValidateSlot(slot string) error {
	if slot == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlot)
	}
	for i, c := range slot {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case (c == '-' || c == '_') && i > 0:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
		}
	}
	return nil
}

func saveFileName(slot string) (string, error) {
	if err := ValidateSlot(slot); err != nil {
		return "", err
	}
	return savePrefix + slot + saveSuffix, nil
}
