package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	m, err := NewFileManager(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)

	agg := &model.Aggregate{
		Objective: &model.Objective{
			ID:    uuid.New(),
			Title: "Rollout",
			Tags:  []string{"strategy"},
		},
		KeyResults: []model.KeyResult{{Title: "KR1", Progress: 40}},
	}

	if err := m.Save(agg); err != nil {
		t.Fatal(err)
	}

	got, ok := m.Load()
	if !ok {
		t.Fatal("snapshot not found after Save")
	}
	if got.Objective.ID != agg.Objective.ID || got.Objective.Title != "Rollout" {
		t.Errorf("objective mismatch: %+v", got.Objective)
	}
	if len(got.KeyResults) != 1 || got.KeyResults[0].Progress != 40 {
		t.Errorf("key results mismatch: %+v", got.KeyResults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	m := newTestManager(t)
	if _, ok := m.Load(); ok {
		t.Error("Load reported a snapshot that was never written")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileManager(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := m.Load(); ok {
		t.Error("corrupt snapshot treated as valid")
	}
}

func TestLoadEmptyObjective(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileManager(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(`{"key_results":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := m.Load(); ok {
		t.Error("snapshot without an objective treated as valid")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	if err := m.Save(&model.Aggregate{Objective: &model.Objective{Title: "x"}}); err != nil {
		t.Fatal(err)
	}

	m.Clear()
	if _, ok := m.Load(); ok {
		t.Error("snapshot survived Clear")
	}

	// Second clear on a missing file must not blow up.
	m.Clear()
}
