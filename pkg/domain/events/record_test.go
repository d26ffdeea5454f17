package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

func TestRecordHashSurvivesJSON(t *testing.T) {
	rec := &events.Record{
		ID:          "rec-1",
		Type:        events.TypeObjectiveStarted,
		ObjectiveID: "rescue",
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 42, time.UTC),
		Metadata:    map[string]any{"state": "in_progress", "priority": 5},
		PrevHash:    "abc",
	}
	rec.Hash = rec.CalculateHash()

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded events.Record
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, rec.Hash, decoded.CalculateHash())
}

func TestRecordHashCoversFields(t *testing.T) {
	base := events.Record{
		ID:          "rec-1",
		Type:        events.TypeTaskAdded,
		ObjectiveID: "escape",
		Subject:     "find-key",
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	hash := base.CalculateHash()

	mutations := map[string]func(r *events.Record){
		"prev hash": func(r *events.Record) { r.PrevHash = "x" },
		"type":      func(r *events.Record) { r.Type = events.TypeTaskRemoved },
		"objective": func(r *events.Record) { r.ObjectiveID = "rescue" },
		"subject":   func(r *events.Record) { r.Subject = "open-door" },
		"timestamp": func(r *events.Record) { r.Timestamp = r.Timestamp.Add(time.Nanosecond) },
		"metadata":  func(r *events.Record) { r.Metadata = map[string]any{"state": "completed"} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := base
			mutate(&r)
			assert.NotEqual(t, hash, r.CalculateHash())
		})
	}
}
