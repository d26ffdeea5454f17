package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Journal record types.
const (
	TypeObjectiveStarted   = "objective.started"
	TypeObjectiveEnded     = "objective.ended"
	TypeObjectiveCompleted = "objective.completed"
	TypeFocusChanged       = "focus.changed"
	TypeTaskAdded          = "task.added"
	TypeTaskRemoved        = "task.removed"
	TypeHintToggled        = "hint.toggled"
	TypeSaveLoaded         = "save.loaded"
	TypeSaveWritten        = "save.written"
)

// Record is one journal entry. Records are chained: each carries the hash of
// its predecessor.
type Record struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	ObjectiveID string         `json:"objective_id,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	PrevHash    string         `json:"prev_hash,omitempty"`
	Hash        string         `json:"hash,omitempty"`
}

// CalculateHash generates a deterministic SHA256 hash of the record.
func (r *Record) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(r.PrevHash))
	h.Write([]byte(r.ID))
	h.Write([]byte(r.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(r.Type))
	h.Write([]byte(r.ObjectiveID))
	h.Write([]byte(r.Subject))
	h.Write([]byte(canonicalJSON(r.Metadata)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON produces a deterministic JSON representation.
func canonicalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}
