package redaction

import (
	"strings"
	"testing"

	"github.com/kadirbelkuyu/crashmon/internal/config"
	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReport(user map[string]any, text string) *domain.CrashReport {
	raw := domain.RawReport{
		"report": map[string]any{"id": "A1"},
		"user":   user,
	}
	report := domain.NewCrashReport("App", 1, raw)
	if text != "" {
		report.AppleFmtValue = &text
	}
	return report
}

func TestNew_Disabled(t *testing.T) {
	r, err := New(config.RedactionConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, r)

	report := newReport(map[string]any{"email": "a@b.io"}, "")
	r.Apply(report)
	assert.Equal(t, "a@b.io", report.RawValue["user"].(map[string]any)["email"])
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(config.RedactionConfig{Enabled: true, TextPatterns: []string{"("}})
	assert.Error(t, err)
}

func TestApply_UserKeys(t *testing.T) {
	tests := []struct {
		name      string
		allowlist []string
		denylist  []string
		want      map[string]any
	}{
		{
			name: "no lists redacts everything",
			want: map[string]any{"user_id": "***", "auth_token": "***", "build": "***"},
		},
		{
			name:      "allowlist keeps listed keys",
			allowlist: []string{"build", "user_*"},
			want:      map[string]any{"user_id": "u-1", "auth_token": "***", "build": "42"},
		},
		{
			name:     "denylist redacts matches only",
			denylist: []string{"*token*"},
			want:     map[string]any{"user_id": "u-1", "auth_token": "***", "build": "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(config.RedactionConfig{
				Enabled:      true,
				KeyAllowlist: tt.allowlist,
				KeyDenylist:  tt.denylist,
			})
			require.NoError(t, err)

			original := map[string]any{"user_id": "u-1", "auth_token": "s3cr3t", "build": "42"}
			report := newReport(original, "")
			r.Apply(report)

			assert.Equal(t, tt.want, report.RawValue["user"])
			assert.Equal(t, "s3cr3t", original["auth_token"], "source map must not be mutated")
		})
	}
}

func TestApply_FormattedText(t *testing.T) {
	r, err := New(config.RedactionConfig{Enabled: true, Replacement: "[x]"})
	require.NoError(t, err)

	text := strings.Join([]string{
		"Process:             App [1]",
		"Application Specific Information:",
		"request failed: token=abc123 for dev@example.com",
	}, "\n")
	report := newReport(nil, text)
	r.Apply(report)

	require.NotNil(t, report.AppleFmtValue)
	got := *report.AppleFmtValue
	assert.Contains(t, got, "Process:             App [1]")
	assert.Contains(t, got, "token=***")
	assert.Contains(t, got, "***@example.com")
	assert.NotContains(t, got, "abc123")
}

func TestRedactText_CustomReplacement(t *testing.T) {
	r, err := New(config.RedactionConfig{
		Enabled:      true,
		Replacement:  "<redacted>",
		TextPatterns: []string{`session-[0-9a-f]+`},
	})
	require.NoError(t, err)

	assert.Equal(t, "id <redacted> end", r.RedactText("id session-9f2c end"))
}

func TestSplitRule(t *testing.T) {
	pat, repl := splitRule(` foo(\d+) => bar$1 `, "***")
	assert.Equal(t, `foo(\d+)`, pat)
	assert.Equal(t, "bar$1", repl)

	pat, repl = splitRule("plain", "***")
	assert.Equal(t, "plain", pat)
	assert.Equal(t, "***", repl)
}
