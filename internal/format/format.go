// Package format turns raw crash reports into summaries and readable text.
package format

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

var (
	ErrSymbolicationUnavailable = errors.New("symbolication unavailable")
	ErrMalformedReport          = errors.New("malformed report")
)

// Formatter renders one raw report. Implementations may block on symbol
// lookup and should honour ctx.
type Formatter interface {
	Format(ctx context.Context, raw domain.RawReport) (string, error)
}

type FormatterFunc func(ctx context.Context, raw domain.RawReport) (string, error)

func (f FormatterFunc) Format(ctx context.Context, raw domain.RawReport) (string, error) {
	return f(ctx, raw)
}

type Style int

const (
	StyleSideBySide Style = iota
	StyleSymbolicated
	StyleUnsymbolicated
	StylePartial
)

func (s Style) String() string {
	switch s {
	case StyleSideBySide:
		return "side-by-side"
	case StyleSymbolicated:
		return "symbolicated"
	case StyleUnsymbolicated:
		return "unsymbolicated"
	case StylePartial:
		return "partial"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "side-by-side", "sidebyside", "symbolicated-side-by-side":
		return StyleSideBySide, nil
	case "symbolicated":
		return StyleSymbolicated, nil
	case "unsymbolicated":
		return StyleUnsymbolicated, nil
	case "partial", "partially-symbolicated":
		return StylePartial, nil
	default:
		return StyleSideBySide, fmt.Errorf("unknown format style %q", s)
	}
}

// failureReason is the metrics label for a formatting error.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedReport):
		return "malformed"
	case errors.Is(err, ErrSymbolicationUnavailable):
		return "symbolication"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
