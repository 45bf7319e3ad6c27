package format

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

// Summarize extracts the "report" section. A missing or mistyped field is
// left nil; a missing section yields nil.
func Summarize(raw domain.RawReport) *domain.Info {
	section, ok := mapField(raw, "report")
	if !ok {
		return nil
	}
	return &domain.Info{
		ReportID:    stringPtr(section, "id"),
		Version:     stringPtr(section, "version"),
		Type:        stringPtr(section, "type"),
		Timestamp:   stringPtr(section, "timestamp"),
		ProcessName: stringPtr(section, "process_name"),
	}
}

// ParseTimestamp reads the RFC 3339 timestamps the capture service writes
// (UTC, microsecond precision).
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CrashDate is the parsed timestamp of info, or nil.
func CrashDate(info *domain.Info) *time.Time {
	if info == nil || info.Timestamp == nil {
		return nil
	}
	t, ok := ParseTimestamp(*info.Timestamp)
	if !ok {
		return nil
	}
	return &t
}

func mapField(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	switch v := m[key].(type) {
	case map[string]any:
		return v, true
	case domain.RawReport:
		return v, true
	default:
		return nil, false
	}
}

func sliceField(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func stringPtr(m map[string]any, key string) *string {
	s, ok := stringField(m, key)
	if !ok {
		return nil
	}
	return &s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// uintField accepts every numeric shape a decoded report can hold.
func uintField(m map[string]any, key string) (uint64, bool) {
	switch v := m[key].(type) {
	case json.Number:
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u, true
		}
		if i, err := v.Int64(); err == nil {
			return uint64(i), true
		}
		if f, err := v.Float64(); err == nil && f >= 0 && f < math.Exp2(64) {
			return uint64(f), true
		}
	case float64:
		if v >= 0 && v < math.Exp2(64) {
			return uint64(v), true
		}
	case int:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case uint64:
		return v, true
	}
	return 0, false
}

func intField(m map[string]any, key string) (int64, bool) {
	u, ok := uintField(m, key)
	return int64(u), ok
}
