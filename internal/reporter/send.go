package reporter

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"go.uber.org/zap"
)

// Sender is the caller's send step. The store only applies the cleanup
// policy around it.
type Sender interface {
	Send(ctx context.Context, id int64, report domain.RawReport) error
}

type SenderFunc func(ctx context.Context, id int64, report domain.RawReport) error

func (f SenderFunc) Send(ctx context.Context, id int64, report domain.RawReport) error {
	return f(ctx, id, report)
}

type SendResult struct {
	Sent    int
	Failed  int
	Skipped int
	Deleted int
}

// SendAll offers every report to sender and then deletes it according to
// the configured cleanup policy. Failures are collected and the loop goes on.
func (s *Store) SendAll(ctx context.Context, sender Sender) (SendResult, error) {
	var res SendResult

	ids, err := s.ListIDs()
	if err != nil {
		return res, err
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		raw, err := s.Fetch(id)
		if err != nil {
			s.logger.Warn("skipping unreadable report", zap.Int64("id", id), zap.Error(err))
			res.Skipped++
			continue
		}
		if raw == nil {
			res.Skipped++
			continue
		}

		sendErr := sender.Send(ctx, id, raw)
		if sendErr != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("send report %d: %w", id, sendErr))
		} else {
			res.Sent++
		}

		if !shouldDelete(s.cfg.CleanupPolicy, sendErr == nil) {
			continue
		}
		if err := s.Delete(id); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Deleted++
	}

	return res, errors.Join(errs...)
}

func shouldDelete(policy domain.CleanupPolicy, sent bool) bool {
	switch policy {
	case domain.CleanupAlways:
		return true
	case domain.CleanupOnSuccess:
		return sent
	default:
		return false
	}
}
