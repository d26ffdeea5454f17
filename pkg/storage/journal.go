package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

// FileJournal is an append-only, hash-chained JSON Lines journal of
// coordinator activity.
type FileJournal struct {
	mu       sync.RWMutex
	path     string
	basePath string
	lastHash string
}

// NewFileJournal opens the journal in basePath. The directory is created on
// first write.
func NewFileJournal(basePath string) (*FileJournal, error) {
	j := &FileJournal{path: filepath.Join(basePath, JournalFile), basePath: basePath}

	last, err := j.Last()
	if err != nil {
		return nil, err
	}
	if last != nil {
		j.lastHash = last.Hash
	}
	return j, nil
}

// Path returns the journal file.
func (j *FileJournal) Path() string {
	return j.path
}

// Append chains and writes a record. Missing ids and timestamps are filled in.
func (j *FileJournal) Append(rec *events.Record) (err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if err := os.MkdirAll(j.basePath, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	rec.PrevHash = j.lastHash
	rec.Hash = rec.CalculateHash()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	j.lastHash = rec.Hash
	return nil
}

// LoadAll returns every record in append order.
func (j *FileJournal) LoadAll() ([]*events.Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.load()
}

// LoadByObjective returns the records about one objective.
func (j *FileJournal) LoadByObjective(objectiveID string) ([]*events.Record, error) {
	return j.filter(func(r *events.Record) bool { return r.ObjectiveID == objectiveID })
}

// LoadByType returns the records of one type.
func (j *FileJournal) LoadByType(recordType string) ([]*events.Record, error) {
	return j.filter(func(r *events.Record) bool { return r.Type == recordType })
}

// LoadSince returns the records written after since.
func (j *FileJournal) LoadSince(since time.Time) ([]*events.Record, error) {
	return j.filter(func(r *events.Record) bool { return r.Timestamp.After(since) })
}

// Last returns the most recent record, or nil for an empty journal.
func (j *FileJournal) Last() (*events.Record, error) {
	all, err := j.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// Count returns the number of records.
func (j *FileJournal) Count() (int, error) {
	all, err := j.LoadAll()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// VerifyIntegrity checks the hash chain and reports every broken link.
func (j *FileJournal) VerifyIntegrity() ([]string, error) {
	all, err := j.LoadAll()
	if err != nil {
		return nil, err
	}

	var violations []string
	lastHash := ""
	for i, r := range all {
		if r.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("record %d (%s): prev hash mismatch", i, r.ID))
		}
		if r.Hash != r.CalculateHash() {
			violations = append(violations, fmt.Sprintf("record %d (%s): hash mismatch, possible tampering", i, r.ID))
		}
		lastHash = r.Hash
	}
	return violations, nil
}

func (j *FileJournal) filter(keep func(*events.Record) bool) ([]*events.Record, error) {
	all, err := j.LoadAll()
	if err != nil {
		return nil, err
	}

	var result []*events.Record
	for _, r := range all {
		if keep(r) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (j *FileJournal) load() ([]*events.Record, error) {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var result []*events.Record
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec events.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		result = append(result, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return result, nil
}
