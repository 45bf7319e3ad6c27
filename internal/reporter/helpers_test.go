package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

func sampleReport(id int64) map[string]any {
	return map[string]any{
		"report": map[string]any{
			"id":           "00000000-0000-0000-0000-00000000000" + string(rune('0'+id%10)),
			"version":      "3.3.0",
			"type":         "standard",
			"timestamp":    "2024-11-21T08:30:00.123456Z",
			"process_name": "App",
		},
		"crash": map[string]any{
			"error": map[string]any{"type": "signal", "signal": map[string]any{"name": "SIGSEGV"}},
		},
	}
}

// writeReport stands in for the capture service.
func writeReport(t testing.TB, dir, appName string, id int64) string {
	t.Helper()
	data, err := json.Marshal(sampleReport(id))
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	path := filepath.Join(dir, domain.DeriveName(appName, id)+reportExt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	return path
}

func testConfig(dir string) domain.StoreConfiguration {
	return domain.StoreConfiguration{
		ReportsPath:    dir,
		AppName:        "App",
		MaxReportCount: domain.DefaultMaxReportCount,
		CleanupPolicy:  domain.CleanupNever,
	}
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}
