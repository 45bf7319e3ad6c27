// Package monitor ties installation, report retrieval, formatting and
// cleanup together behind a single handle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"github.com/kadirbelkuyu/crashmon/internal/format"
	"github.com/kadirbelkuyu/crashmon/internal/install"
	"github.com/kadirbelkuyu/crashmon/internal/metrics"
	"github.com/kadirbelkuyu/crashmon/internal/redaction"
	"github.com/kadirbelkuyu/crashmon/internal/reporter"
	"go.uber.org/zap"
)

type Monitor struct {
	coordinator *install.Coordinator
	formatter   format.Formatter
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
	redactor    *redaction.Redactor
	appNameFn   domain.AppNameProvider
	installPath string
}

type Option func(*Monitor)

func WithFormatter(f format.Formatter) Option {
	return func(m *Monitor) {
		if f != nil {
			m.formatter = f
		}
	}
}

func WithStyle(style format.Style) Option {
	return func(m *Monitor) {
		m.formatter = format.NewAppleFormatter(style)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		m.timeout = d
	}
}

func WithConcurrency(n int) Option {
	return func(m *Monitor) {
		m.concurrency = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

func WithRedactor(r *redaction.Redactor) Option {
	return func(m *Monitor) {
		m.redactor = r
	}
}

func WithAppNameProvider(fn domain.AppNameProvider) Option {
	return func(m *Monitor) {
		if fn != nil {
			m.appNameFn = fn
		}
	}
}

// WithInstallPath sets the install path used to resolve reports locations
// before Install has been called.
func WithInstallPath(path string) Option {
	return func(m *Monitor) {
		m.installPath = path
	}
}

// New returns a Monitor backed by service. service may be nil for
// read-only use; Install then fails.
func New(service install.CaptureService, opts ...Option) *Monitor {
	m := &Monitor{
		formatter:   format.NewAppleFormatter(format.StyleSideBySide),
		concurrency: format.DefaultConcurrency,
		logger:      zap.NewNop(),
		appNameFn:   domain.ExecutableAppName,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.coordinator = install.NewCoordinator(service,
		install.WithLogger(m.logger),
		install.WithAppNameProvider(m.appNameFn),
	)
	return m
}

// Install starts crash capture. It must complete before reports are read
// from the same installation.
func (m *Monitor) Install(cfg domain.InstallConfiguration) error {
	return m.coordinator.Install(cfg)
}

func (m *Monitor) Installed() bool {
	return m.coordinator.Installed()
}

// OpenStore opens the report store for cfg. Once installed, relative
// resolution uses the installed path.
func (m *Monitor) OpenStore(cfg domain.StoreConfiguration) (*reporter.Store, error) {
	installPath := m.installPath
	if installed, ok := m.coordinator.Configuration(); ok && installed.InstallPath != "" {
		installPath = installed.InstallPath
	}

	return reporter.Open(cfg,
		reporter.WithLogger(m.logger),
		reporter.WithMetrics(m.metrics),
		reporter.WithInstallPath(installPath),
		reporter.WithAppNameProvider(m.appNameFn),
	)
}

// AllReports returns every readable report, oldest first. Missing and
// corrupt files are skipped; a report that fails to format is returned
// with a nil AppleFmtValue.
func (m *Monitor) AllReports(ctx context.Context, cfg domain.StoreConfiguration) ([]domain.CrashReport, error) {
	store, err := m.OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	ids, err := store.ListIDs()
	if err != nil {
		return nil, err
	}

	fetchedIDs := make([]int64, 0, len(ids))
	raws := make([]domain.RawReport, 0, len(ids))
	for _, id := range ids {
		raw, err := store.Fetch(id)
		if err != nil {
			m.logger.Warn("skipping unreadable report",
				zap.Int64("id", id),
				zap.Bool("corrupt", errors.Is(err, reporter.ErrCorruptReport)),
				zap.Error(err),
			)
			continue
		}
		if raw == nil {
			continue
		}
		fetchedIDs = append(fetchedIDs, id)
		raws = append(raws, raw)
	}

	reports := m.assemble(ctx, store.AppName(), fetchedIDs, raws)

	m.logger.Debug("loaded reports",
		zap.Int("listed", len(ids)),
		zap.Int("returned", len(reports)),
	)
	return reports, nil
}

// Report returns a single report, or nil when id is not on disk.
func (m *Monitor) Report(ctx context.Context, cfg domain.StoreConfiguration, id int64) (*domain.CrashReport, error) {
	store, err := m.OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := store.Fetch(id)
	if err != nil || raw == nil {
		return nil, err
	}

	reports := m.assemble(ctx, store.AppName(), []int64{id}, []domain.RawReport{raw})
	return &reports[0], nil
}

func (m *Monitor) assemble(ctx context.Context, appName string, ids []int64, raws []domain.RawReport) []domain.CrashReport {
	results := format.FormatAll(ctx, m.formatter, raws,
		format.WithConcurrency(m.concurrency),
		format.WithTimeout(m.timeout),
		format.WithLogger(m.logger),
		format.WithMetrics(m.metrics),
	)

	reports := make([]domain.CrashReport, 0, len(results))
	for i, res := range results {
		report := domain.NewCrashReport(appName, ids[i], res.Raw)
		report.Info = format.Summarize(res.Raw)
		report.CrashDate = format.CrashDate(report.Info)
		report.AppleFmtValue = res.Text
		m.redactor.Apply(report)
		reports = append(reports, *report)
	}
	return reports
}

// AllFormattedReports returns the formatted text of every report that
// formatted successfully, oldest first.
func (m *Monitor) AllFormattedReports(ctx context.Context, cfg domain.StoreConfiguration) ([]string, error) {
	reports, err := m.AllReports(ctx, cfg)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(reports))
	for _, r := range reports {
		if r.AppleFmtValue != nil {
			texts = append(texts, *r.AppleFmtValue)
		}
	}
	return texts, nil
}

func (m *Monitor) DeleteAllReports(cfg domain.StoreConfiguration) error {
	store, err := m.OpenStore(cfg)
	if err != nil {
		return err
	}
	return store.DeleteAll()
}

// SendAllReports hands every report to sender and removes the ones the
// configured cleanup policy selects.
func (m *Monitor) SendAllReports(ctx context.Context, cfg domain.StoreConfiguration, sender reporter.Sender) (reporter.SendResult, error) {
	if sender == nil {
		return reporter.SendResult{}, fmt.Errorf("%w: nil sender", domain.ErrInvalidConfiguration)
	}

	store, err := m.OpenStore(cfg)
	if err != nil {
		return reporter.SendResult{}, err
	}

	if m.redactor != nil {
		inner := sender
		sender = reporter.SenderFunc(func(ctx context.Context, id int64, raw domain.RawReport) error {
			report := domain.NewCrashReport(store.AppName(), id, raw)
			m.redactor.Apply(report)
			return inner.Send(ctx, id, report.RawValue)
		})
	}

	return store.SendAll(ctx, sender)
}
