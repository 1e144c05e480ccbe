package pages

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreMigrations(t *testing.T) {
	store := openTestStore(t)

	version, err := store.currentVersion()
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestStoreConfigurationLifecycle(t *testing.T) {
	store := openTestStore(t)
	cfg := fullConfiguration(t)

	if err := store.SaveConfiguration(cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.LoadConfiguration(cfg.Name)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Pages) != len(cfg.Pages) || len(loaded.Elements) != len(cfg.Elements) {
		t.Errorf("loaded %d pages %d elements, want %d and %d",
			len(loaded.Pages), len(loaded.Elements), len(cfg.Pages), len(cfg.Elements))
	}

	names, err := store.ListConfigurations()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 1 || names[0] != cfg.Name {
		t.Errorf("names = %v", names)
	}

	// Saving again replaces, not duplicates.
	if err := store.SaveConfiguration(cfg); err != nil {
		t.Fatalf("re-save failed: %v", err)
	}
	names, _ = store.ListConfigurations()
	if len(names) != 1 {
		t.Errorf("after re-save names = %v", names)
	}

	if err := store.DeleteConfiguration(cfg.Name); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.LoadConfiguration(cfg.Name); err == nil {
		t.Error("load after delete should fail")
	}
}

func TestStoreRejectsInvalidConfiguration(t *testing.T) {
	store := openTestStore(t)

	// Two pages satisfiable by one screen must never reach the database.
	m := NewManager("bad", nil)
	a := pixelAt(t, "a", 10, 10, red)
	b := pixelAt(t, "b", 50, 50, blue)
	m.AddElement(a)
	m.AddElement(b)
	pageA, _ := m.AddPage("A")
	pageB, _ := m.AddPage("B")
	m.AddIdentifier(pageA.ID, a.ID(), true)
	m.AddIdentifier(pageB.ID, b.ID(), true)

	err := store.SaveConfiguration(m.Snapshot())
	if !errors.Is(err, ErrAmbiguousPageConfiguration) {
		t.Fatalf("err = %v, want ErrAmbiguousPageConfiguration", err)
	}
	if names, _ := store.ListConfigurations(); len(names) != 0 {
		t.Errorf("rejected configuration was persisted: %v", names)
	}
}

func TestStoreRunHistory(t *testing.T) {
	store := openTestStore(t)
	started := time.Now().Add(-time.Minute)

	_, err := store.RecordRun(RunRecord{
		Configuration:  "test-app",
		Workflow:       "login-flow",
		StartedAt:      started,
		FinishedAt:     started.Add(30 * time.Second),
		Succeeded:      false,
		StepsCompleted: 2,
		FailedStep:     "Transition(Login -> Lobby)",
		FailureReason:  "action not confirmed",
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	_, err = store.RecordRun(RunRecord{
		Configuration: "test-app",
		Workflow:      "login-flow",
		StartedAt:     time.Now(),
		FinishedAt:    time.Now(),
		Succeeded:     true,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	// Newest first.
	if !runs[0].Succeeded || runs[1].Succeeded {
		t.Errorf("run order wrong: %+v", runs)
	}
	if runs[1].FailedStep != "Transition(Login -> Lobby)" {
		t.Errorf("failed step = %q", runs[1].FailedStep)
	}
}
