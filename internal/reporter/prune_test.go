package reporter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_Prune_DeletesOldestReports(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testConfig(tmpDir)
	cfg.MaxReportCount = 3
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for id := int64(1); id <= 5; id++ {
		writeReport(t, tmpDir, "App", id)
	}

	res, err := store.Prune()
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}
	if res.Kept != 3 {
		t.Errorf("Kept = %d, want 3", res.Kept)
	}

	for _, id := range []int64{1, 2} {
		if _, err := os.Stat(store.ReportPath(id)); !os.IsNotExist(err) {
			t.Errorf("report %d should have been evicted", id)
		}
	}
	for _, id := range []int64{3, 4, 5} {
		if _, err := os.Stat(store.ReportPath(id)); err != nil {
			t.Errorf("report %d missing: %v", id, err)
		}
	}
}

func TestStore_Prune_UnderLimit(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))
	writeReport(t, tmpDir, "App", 1)

	res, err := store.Prune()
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if res.Deleted != 0 || res.Kept != 1 {
		t.Errorf("Prune() = %+v, want 0 deleted and 1 kept", res)
	}
}

func TestStore_RetentionOnOpen(t *testing.T) {
	tmpDir := t.TempDir()
	for id := int64(1); id <= 4; id++ {
		writeReport(t, tmpDir, "App", id)
	}

	cfg := testConfig(tmpDir)
	cfg.MaxReportCount = 2
	if _, err := Open(cfg); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(tmpDir, "App-report-*.json"))
	if len(files) != 2 {
		t.Errorf("files = %d, want 2", len(files))
	}
}

func TestStore_RetentionOnFetch(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testConfig(tmpDir)
	cfg.MaxReportCount = 1
	store, _ := Open(cfg)

	writeReport(t, tmpDir, "App", 1)
	writeReport(t, tmpDir, "App", 2)

	raw, err := store.Fetch(1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if raw != nil {
		t.Error("Fetch() of an evicted report should return nil")
	}
	if raw, _ := store.Fetch(2); raw == nil {
		t.Error("newest report should survive retention")
	}
}

// Scenario: 20 retained, the capture service writes 25.
func TestStore_RetentionScenario(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "reports")
	store, err := Open(testConfig(tmpDir))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ids, err := store.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ListIDs() = %v, want empty", ids)
	}

	for id := int64(1); id <= 25; id++ {
		writeReport(t, tmpDir, "App", id)
	}

	ids, err = store.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) > 20 {
		t.Fatalf("ListIDs() returned %d ids, want at most 20", len(ids))
	}
	for _, id := range ids {
		if id <= 5 {
			t.Errorf("report %d should have been purged", id)
		}
	}
}
