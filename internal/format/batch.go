package format

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"github.com/kadirbelkuyu/crashmon/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Result pairs a raw report with its formatted text. Text is nil when
// formatting failed; Err says why.
type Result struct {
	Raw  domain.RawReport
	Text *string
	Err  error
}

type batchOptions struct {
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

type BatchOption func(*batchOptions)

func WithConcurrency(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithTimeout bounds each Format call. Zero means no bound.
func WithTimeout(d time.Duration) BatchOption {
	return func(o *batchOptions) {
		o.timeout = d
	}
}

func WithLogger(logger *zap.Logger) BatchOption {
	return func(o *batchOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) BatchOption {
	return func(o *batchOptions) {
		o.metrics = m
	}
}

// FormatAll formats every report independently. The result has one entry
// per input, in input order; a failing or slow report only affects its own
// entry. After ctx is done no further Format calls are started and the
// remaining entries carry ctx.Err().
func FormatAll(ctx context.Context, f Formatter, raws []domain.RawReport, opts ...BatchOption) []Result {
	o := batchOptions{
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]Result, len(raws))

	// Plain group: one report's error must not cancel the others.
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for i, raw := range raws {
		results[i].Raw = raw
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			// g.Go may have blocked on the limit while ctx was cancelled.
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			text, err := o.formatOne(ctx, f, raw)
			if err != nil {
				results[i].Err = err
				o.metrics.ObserveFormatFailure(failureReason(err))
				o.logger.Warn("failed to format report", zap.Int("index", i), zap.Error(err))
				return nil
			}
			results[i].Text = &text
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (o *batchOptions) formatOne(ctx context.Context, f Formatter, raw domain.RawReport) (string, error) {
	if o.timeout <= 0 {
		return safeFormat(ctx, f, raw)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := safeFormat(ctx, f, raw)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func safeFormat(ctx context.Context, f Formatter, raw domain.RawReport) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: formatter panicked: %v", ErrMalformedReport, r)
		}
	}()
	return f.Format(ctx, raw)
}
