package domain

import (
	"fmt"
	"strings"
)

// CleanupPolicy decides what happens to a report after it has been handed
// to a send step.
type CleanupPolicy int

const (
	CleanupNever CleanupPolicy = iota
	CleanupOnSuccess
	CleanupAlways
)

func (p CleanupPolicy) String() string {
	switch p {
	case CleanupNever:
		return "never"
	case CleanupOnSuccess:
		return "on-success"
	case CleanupAlways:
		return "always"
	default:
		return fmt.Sprintf("CleanupPolicy(%d)", int(p))
	}
}

func (p CleanupPolicy) Valid() bool {
	return p >= CleanupNever && p <= CleanupAlways
}

func ParseCleanupPolicy(s string) (CleanupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "never":
		return CleanupNever, nil
	case "on-success", "onsuccess", "on_success":
		return CleanupOnSuccess, nil
	case "always":
		return CleanupAlways, nil
	default:
		return CleanupNever, fmt.Errorf("unknown cleanup policy %q", s)
	}
}
