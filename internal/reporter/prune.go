package reporter

import (
	"go.uber.org/zap"
)

type PruneResult struct {
	Deleted int
	Kept    int
	Failed  int
}

// Prune evicts the oldest reports (lowest ids) until at most
// MaxReportCount remain.
func (s *Store) Prune() (PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res PruneResult

	ids, err := s.scan()
	if err != nil {
		return res, err
	}

	excess := len(ids) - s.cfg.MaxReportCount
	if excess <= 0 {
		res.Kept = len(ids)
		return res, nil
	}

	var firstErr error
	for _, id := range ids[:excess] {
		if err := removeReport(s.ReportPath(id)); err != nil {
			res.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		res.Deleted++
	}
	res.Kept = len(ids) - excess

	if res.Deleted > 0 {
		s.metrics.ObservePruned(res.Deleted)
		s.logger.Debug("pruned reports",
			zap.Int("deleted", res.Deleted),
			zap.Int("kept", res.Kept),
			zap.Int("max", s.cfg.MaxReportCount),
		)
	}
	return res, firstErr
}
