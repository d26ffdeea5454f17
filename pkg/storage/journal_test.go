package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

func TestFileJournal_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}

	first := &events.Record{Type: events.TypeObjectiveStarted, ObjectiveID: "escape"}
	if err := j.Append(first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second := &events.Record{
		Type:        events.TypeTaskAdded,
		ObjectiveID: "escape",
		Subject:     "find-key",
		Metadata:    map[string]any{"active_tasks": 1},
	}
	if err := j.Append(second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if first.ID == "" || first.Timestamp.IsZero() {
		t.Error("Append should fill in id and timestamp")
	}

	loaded, err := j.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}
	if loaded[0].PrevHash != "" {
		t.Error("First record should have empty PrevHash")
	}
	if loaded[1].PrevHash != loaded[0].Hash {
		t.Error("Second record's PrevHash should match first record's Hash")
	}
	if loaded[1].Subject != "find-key" {
		t.Errorf("Subject = %q, want find-key", loaded[1].Subject)
	}
}

func TestFileJournal_ChainSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}
	if err := j.Append(&events.Record{Type: events.TypeSaveLoaded}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reopened, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}
	if err := reopened.Append(&events.Record{Type: events.TypeSaveWritten}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	violations, err := reopened.VerifyIntegrity()
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected intact chain, got %v", violations)
	}
}

func TestFileJournal_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}
	for _, id := range []string{"escape", "rescue", "explore"} {
		if err := j.Append(&events.Record{Type: events.TypeObjectiveStarted, ObjectiveID: id}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	data, err := os.ReadFile(j.Path())
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"objective_id":"rescue"`, `"objective_id":"dragon"`, 1)
	if err := os.WriteFile(j.Path(), []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	violations, err := j.VerifyIntegrity()
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %v", violations)
	}
	if !strings.Contains(violations[0], "record 1") {
		t.Errorf("Unexpected violation: %s", violations[0])
	}
}

func TestFileJournal_Queries(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}

	old := time.Now().Add(-time.Hour)
	records := []*events.Record{
		{Type: events.TypeObjectiveStarted, ObjectiveID: "escape", Timestamp: old},
		{Type: events.TypeObjectiveStarted, ObjectiveID: "rescue"},
		{Type: events.TypeFocusChanged, ObjectiveID: "rescue"},
		{Type: events.TypeObjectiveEnded, ObjectiveID: "escape"},
	}
	for _, r := range records {
		if err := j.Append(r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	byObjective, err := j.LoadByObjective("escape")
	if err != nil {
		t.Fatal(err)
	}
	if len(byObjective) != 2 {
		t.Errorf("LoadByObjective: expected 2, got %d", len(byObjective))
	}

	byType, err := j.LoadByType(events.TypeObjectiveStarted)
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 2 {
		t.Errorf("LoadByType: expected 2, got %d", len(byType))
	}

	since, err := j.LoadSince(old.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 3 {
		t.Errorf("LoadSince: expected 3, got %d", len(since))
	}

	count, err := j.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("Count: expected 4, got %d", count)
	}

	last, err := j.Last()
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.Type != events.TypeObjectiveEnded {
		t.Errorf("Last: unexpected record %+v", last)
	}
}

func TestFileJournal_Empty(t *testing.T) {
	j, err := NewFileJournal(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}

	last, err := j.Last()
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Error("Expected nil last record for empty journal")
	}
	count, err := j.Count()
	if err != nil || count != 0 {
		t.Errorf("Count = %d, %v; want 0, nil", count, err)
	}
}

func TestFileJournal_CorruptLine(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("NewFileJournal failed: %v", err)
	}
	if err := os.WriteFile(j.Path(), []byte("{not json\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := j.LoadAll(); err == nil {
		t.Error("Expected error for corrupt journal line")
	}
	if _, err := NewFileJournal(dir); err == nil {
		t.Error("Expected NewFileJournal to surface corrupt journal")
	}
}
