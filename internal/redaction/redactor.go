package redaction

import (
	"fmt"
	"maps"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kadirbelkuyu/crashmon/internal/config"
	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

// userSection is the raw report section carrying the install-time user info.
const userSection = "user"

type compiledRule struct {
	re   *regexp.Regexp
	repl string
}

// Redactor scrubs user-supplied data from crash reports before they are
// shown or sent. A nil *Redactor is valid and leaves reports untouched.
type Redactor struct {
	replacement  string
	keyAllowlist []string
	keyDenylist  []string
	textRules    []compiledRule
}

func New(cfg config.RedactionConfig) (*Redactor, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	replacement := strings.TrimSpace(cfg.Replacement)
	if replacement == "" {
		replacement = "***"
	}

	patterns := cfg.TextPatterns
	if len(patterns) == 0 {
		patterns = defaultTextPatterns()
	}

	rules := make([]compiledRule, 0, len(patterns))
	for _, raw := range patterns {
		pat, repl := splitRule(raw, replacement)
		if strings.TrimSpace(pat) == "" {
			continue
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid text redaction pattern: %w", err)
		}
		rules = append(rules, compiledRule{re: re, repl: repl})
	}

	return &Redactor{
		replacement:  replacement,
		keyAllowlist: cfg.KeyAllowlist,
		keyDenylist:  cfg.KeyDenylist,
		textRules:    rules,
	}, nil
}

// Apply rewrites the report's user section and formatted text in place.
// The raw map is copied before modification so other holders of the
// original map are not affected.
func (r *Redactor) Apply(report *domain.CrashReport) {
	if r == nil || report == nil {
		return
	}

	if user, ok := report.RawValue[userSection].(map[string]any); ok && len(user) > 0 {
		raw := maps.Clone(report.RawValue)
		raw[userSection] = r.redactUser(user)
		report.RawValue = raw
	}

	if report.AppleFmtValue != nil {
		text := r.RedactText(*report.AppleFmtValue)
		report.AppleFmtValue = &text
	}
}

func (r *Redactor) redactUser(user map[string]any) map[string]any {
	out := make(map[string]any, len(user))
	for k, v := range user {
		if r.shouldRedactKey(k) {
			out[k] = r.replacement
			continue
		}
		out[k] = v
	}
	return out
}

func (r *Redactor) shouldRedactKey(key string) bool {
	if len(r.keyAllowlist) > 0 {
		return !matchAny(r.keyAllowlist, key)
	}
	if len(r.keyDenylist) == 0 {
		return true
	}
	return matchAny(r.keyDenylist, key)
}

// RedactText applies the text rules line by line.
func (r *Redactor) RedactText(text string) string {
	if r == nil || text == "" || len(r.textRules) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, rule := range r.textRules {
			line = rule.re.ReplaceAllString(line, rule.repl)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func matchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == s {
			return true
		}
		if ok, _ := filepath.Match(p, s); ok {
			return true
		}
	}
	return false
}

func splitRule(raw, fallback string) (string, string) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, "=>", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return raw, fallback
}

func defaultTextPatterns() []string {
	return []string{
		`(?i)((?:authorization|x-authorization)\s*:\s*bearer\s+)[^\s]+=>$1***`,
		`(?i)((?:token|api[_-]?key|secret|password)\s*[:=]\s*)[^\s]+=>$1***`,
		`(?i)([a-z0-9._%+-]+)@([a-z0-9.-]+\.[a-z]{2,})=>***@$2`,
	}
}
