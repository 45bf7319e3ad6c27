package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"github.com/kadirbelkuyu/crashmon/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrUnreachable   = errors.New("reports location unreachable")
	ErrCorruptReport = errors.New("corrupt report")
)

const reportExt = ".json"

var _ Storage = (*Store)(nil)

// Store reads the reports the capture service persisted in one directory.
// Handles keep no report state in memory; the directory is the source of
// truth, so several handles may share it.
type Store struct {
	cfg         domain.StoreConfiguration
	dir         string
	appName     string
	installPath string
	appNameFn   domain.AppNameProvider
	logger      *zap.Logger
	metrics     *metrics.Metrics
	mu          sync.Mutex
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithInstallPath sets the base directory used when the configuration has
// no explicit reports path.
func WithInstallPath(path string) Option {
	return func(s *Store) {
		s.installPath = path
	}
}

func WithAppNameProvider(fn domain.AppNameProvider) Option {
	return func(s *Store) {
		s.appNameFn = fn
	}
}

// Open resolves the reports directory for cfg, creates it when missing and
// enforces retention once.
func Open(cfg domain.StoreConfiguration, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:       cfg,
		appNameFn: domain.ExecutableAppName,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dir = cfg.ResolveReportsPath(s.installPath)
	s.appName = cfg.ResolveAppName(s.appNameFn)
	s.logger = s.logger.With(zap.String("reports_path", s.dir), zap.String("app_name", s.appName))

	if err := ensureDir(s.dir); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, s.dir, err)
	}

	s.enforceRetention()
	return s, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

func (s *Store) Path() string {
	return s.dir
}

func (s *Store) AppName() string {
	return s.appName
}

func (s *Store) Config() domain.StoreConfiguration {
	return s.cfg
}

// ReportPath is where the capture service keeps report id.
func (s *Store) ReportPath(id int64) string {
	return filepath.Join(s.dir, domain.DeriveName(s.appName, id)+reportExt)
}

// ParseFileName returns the id of a report file belonging to this store.
func (s *Store) ParseFileName(name string) (int64, bool) {
	stem, ok := strings.CutSuffix(filepath.Base(name), reportExt)
	if !ok {
		return 0, false
	}
	return domain.ParseReportName(s.appName, stem)
}

// ListIDs returns the persisted report ids in ascending order.
func (s *Store) ListIDs() ([]int64, error) {
	s.enforceRetention()
	return s.scan()
}

func (s *Store) Count() (int, error) {
	ids, err := s.ListIDs()
	return len(ids), err
}

// Fetch returns nil without an error when id is not on disk.
func (s *Store) Fetch(id int64) (domain.RawReport, error) {
	s.enforceRetention()

	raw, size, err := readReportFile(s.ReportPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.metrics.ObserveFetch("missing", 0)
			return nil, nil
		}
		s.metrics.ObserveFetch("error", size)
		return nil, fmt.Errorf("failed to read report %d: %w", id, err)
	}

	s.metrics.ObserveFetch("ok", size)
	return raw, nil
}

func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return removeReport(s.ReportPath(id))
}

// DeleteAll removes every report. An empty store is not an error.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.scan()
	if err != nil {
		return err
	}

	var firstErr error
	for _, id := range ids {
		if err := removeReport(s.ReportPath(id)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil && len(ids) > 0 {
		s.logger.Info("deleted all reports", zap.Int("count", len(ids)))
	}
	return firstErr
}

func (s *Store) scan() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []int64{}, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := s.ParseFileName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) enforceRetention() {
	res, err := s.Prune()
	if err != nil {
		s.logger.Warn("retention enforcement failed", zap.Error(err), zap.Int("failed", res.Failed))
	}
}

func removeReport(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

func readReportFile(path string) (domain.RawReport, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw domain.RawReport
	if err := dec.Decode(&raw); err != nil {
		return nil, len(data), fmt.Errorf("%w: %v", ErrCorruptReport, err)
	}
	if raw == nil {
		return nil, len(data), fmt.Errorf("%w: not an object", ErrCorruptReport)
	}
	return raw, len(data), nil
}
