package reporter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := Open(testConfig(tmpDir))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if store.Path() != tmpDir {
		t.Errorf("Path() = %v, want %v", store.Path(), tmpDir)
	}
	if store.AppName() != "App" {
		t.Errorf("AppName() = %v, want App", store.AppName())
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newPath := filepath.Join(tmpDir, "nested", "path", "reports")

	_, err := Open(testConfig(newPath))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := os.Stat(newPath); os.IsNotExist(err) {
		t.Errorf("Directory was not created: %s", newPath)
	}
}

func TestOpen_DefaultPathFromInstallPath(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testConfig("")

	store, err := Open(cfg, WithInstallPath(tmpDir))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	want := filepath.Join(tmpDir, "Reports")
	if store.Path() != want {
		t.Errorf("Path() = %v, want %v", store.Path(), want)
	}
}

func TestOpen_DefaultAppName(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.AppName = ""

	store, err := Open(cfg, WithAppNameProvider(func() (string, error) {
		return "", errors.New("no bundle")
	}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if store.AppName() != domain.DefaultAppName {
		t.Errorf("AppName() = %v, want %v", store.AppName(), domain.DefaultAppName)
	}
}

func TestOpen_InvalidConfiguration(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxReportCount = 0

	_, err := Open(cfg)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("Open() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestOpen_Unreachable(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := Open(testConfig(filepath.Join(file, "reports")))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Open() error = %v, want ErrUnreachable", err)
	}

	_, err = Open(testConfig(file))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Open() on a file error = %v, want ErrUnreachable", err)
	}
}

func TestStore_ListIDs_Empty(t *testing.T) {
	store, _ := Open(testConfig(t.TempDir()))

	ids, err := store.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListIDs() returned %d ids, want 0", len(ids))
	}
}

func TestStore_ListIDs(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))

	for _, id := range []int64{30, 10, 20} {
		writeReport(t, tmpDir, "App", id)
	}
	writeReport(t, tmpDir, "Other", 40)
	os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("hi"), 0644)
	os.Mkdir(filepath.Join(tmpDir, "App-report-0000000000000050.json"), 0755)

	ids, err := store.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}

	want := []int64{10, 20, 30}
	if len(ids) != len(want) {
		t.Fatalf("ListIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ListIDs()[%d] = %v, want %v", i, ids[i], want[i])
		}
	}
}

func TestStore_Fetch(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))
	writeReport(t, tmpDir, "App", 0x1a)

	raw, err := store.Fetch(0x1a)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if raw == nil {
		t.Fatal("Fetch() returned nil for an existing report")
	}
	section, ok := raw["report"].(map[string]any)
	if !ok {
		t.Fatalf("report section type = %T", raw["report"])
	}
	if section["type"] != "standard" {
		t.Errorf("report.type = %v, want standard", section["type"])
	}
}

func TestStore_Fetch_Missing(t *testing.T) {
	store, _ := Open(testConfig(t.TempDir()))

	raw, err := store.Fetch(99)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if raw != nil {
		t.Errorf("Fetch() = %v, want nil", raw)
	}
}

func TestStore_Fetch_DeletedByOtherHandle(t *testing.T) {
	tmpDir := t.TempDir()
	first, _ := Open(testConfig(tmpDir))
	second, _ := Open(testConfig(tmpDir))
	writeReport(t, tmpDir, "App", 5)

	if err := second.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	raw, err := first.Fetch(5)
	if err != nil || raw != nil {
		t.Errorf("Fetch() = %v, %v, want nil, nil", raw, err)
	}
}

func TestStore_Fetch_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))
	path := store.ReportPath(3)
	os.WriteFile(path, []byte("not valid json"), 0644)

	_, err := store.Fetch(3)
	if !errors.Is(err, ErrCorruptReport) {
		t.Errorf("Fetch() error = %v, want ErrCorruptReport", err)
	}
}

func TestStore_Fetch_PreservesLargeNumbers(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))
	os.WriteFile(store.ReportPath(1), []byte(`{"crash":{"addr":18446744073709551615}}`), 0644)

	raw, err := store.Fetch(1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	crash := raw["crash"].(map[string]any)
	if got := crash["addr"]; got == nil || got.(interface{ String() string }).String() != "18446744073709551615" {
		t.Errorf("addr = %v, want exact value", got)
	}
}

func TestStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))
	writeReport(t, tmpDir, "App", 1)
	writeReport(t, tmpDir, "App", 2)

	if err := store.Delete(1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(1); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}

	ids, _ := store.ListIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("ListIDs() = %v, want [2]", ids)
	}
}

func TestStore_DeleteAll(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := Open(testConfig(tmpDir))
	for i := int64(1); i <= 3; i++ {
		writeReport(t, tmpDir, "App", i)
	}
	writeReport(t, tmpDir, "Other", 4)

	if err := store.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	ids, _ := store.ListIDs()
	if len(ids) != 0 {
		t.Errorf("ListIDs() = %v, want empty", ids)
	}
	others, _ := filepath.Glob(filepath.Join(tmpDir, "Other-report-*.json"))
	if len(others) != 1 {
		t.Errorf("DeleteAll removed reports of another app")
	}
}

func TestStore_DeleteAll_EmptyIsIdempotent(t *testing.T) {
	store, _ := Open(testConfig(t.TempDir()))

	for i := 0; i < 2; i++ {
		if err := store.DeleteAll(); err != nil {
			t.Fatalf("DeleteAll() #%d error = %v", i+1, err)
		}
		ids, err := store.ListIDs()
		if err != nil {
			t.Fatalf("ListIDs() error = %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("ListIDs() = %v, want empty", ids)
		}
	}
}

func TestStore_ListIDs_DirectoryRemoved(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "reports")
	store, _ := Open(testConfig(tmpDir))
	os.RemoveAll(tmpDir)

	ids, err := store.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListIDs() = %v, want empty", ids)
	}
}

func TestStore_ImplementsStorageInterface(t *testing.T) {
	store, _ := Open(testConfig(t.TempDir()))
	var _ Storage = store
}

func BenchmarkStore_ListIDs(b *testing.B) {
	tmpDir := b.TempDir()
	store, _ := Open(testConfig(tmpDir))
	for i := int64(0); i < domain.DefaultMaxReportCount; i++ {
		writeReport(b, tmpDir, "App", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.ListIDs()
	}
}
