// Package install applies an installation configuration to the capture
// service. The capture service can be configured once per process; callers
// must let Install return before opening stores against the installation.
package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrAlreadyInstalled = errors.New("capture service already installed")
	ErrInvalidPath      = errors.New("invalid install path")
)

// CaptureService is the process-wide fault capture mechanism.
type CaptureService interface {
	Install(cfg NativeConfig) error
}

type NativeCleanupPolicy int

const (
	NativeCleanupNever NativeCleanupPolicy = iota
	NativeCleanupOnSuccess
	NativeCleanupAlways
)

type NativeStoreConfig struct {
	ReportsPath    string
	AppName        string
	MaxReportCount int
	CleanupPolicy  NativeCleanupPolicy
}

// NativeConfig is the capture service's own representation of an
// installation.
type NativeConfig struct {
	InstallPath  string
	Monitors     uint
	UserInfoJSON []byte
	Store        NativeStoreConfig
}

type Coordinator struct {
	service   CaptureService
	logger    *zap.Logger
	appNameFn domain.AppNameProvider

	mu        sync.Mutex
	installed bool
	applied   domain.InstallConfiguration
}

type Option func(*Coordinator)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithAppNameProvider(fn domain.AppNameProvider) Option {
	return func(c *Coordinator) {
		c.appNameFn = fn
	}
}

func NewCoordinator(service CaptureService, opts ...Option) *Coordinator {
	c := &Coordinator{
		service:   service,
		logger:    zap.NewNop(),
		appNameFn: domain.ExecutableAppName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Install hands cfg to the capture service. Only the first successful call
// takes effect; later calls fail with ErrAlreadyInstalled.
func (c *Coordinator) Install(cfg domain.InstallConfiguration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.installed {
		return ErrAlreadyInstalled
	}
	if c.service == nil {
		return errors.New("no capture service configured")
	}

	native, err := c.translate(cfg)
	if err != nil {
		return err
	}

	if err := c.service.Install(native); err != nil {
		return fmt.Errorf("capture service install failed: %w", err)
	}

	c.installed = true
	c.applied = domain.NewInstallConfiguration(cfg.InstallPath, cfg.Monitors, cfg.Store, cfg.UserInfo)
	c.logger.Info("crash monitor installed",
		zap.String("install_path", native.InstallPath),
		zap.String("reports_path", native.Store.ReportsPath),
		zap.Stringer("monitors", domain.MonitorType(native.Monitors)),
		zap.Int("max_report_count", native.Store.MaxReportCount),
		zap.Stringer("cleanup_policy", cfg.Store.CleanupPolicy),
	)
	return nil
}

func (c *Coordinator) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// Configuration returns the configuration that was installed.
func (c *Coordinator) Configuration() (domain.InstallConfiguration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.installed {
		return domain.InstallConfiguration{}, false
	}
	applied := c.applied
	applied.UserInfo = maps.Clone(applied.UserInfo)
	return applied, true
}

func (c *Coordinator) translate(cfg domain.InstallConfiguration) (NativeConfig, error) {
	if err := cfg.Store.Validate(); err != nil {
		return NativeConfig{}, err
	}

	installPath := cfg.InstallPath
	if installPath != "" {
		if err := checkInstallPath(installPath); err != nil {
			return NativeConfig{}, fmt.Errorf("%w: %s: %v", ErrInvalidPath, installPath, err)
		}
	} else {
		installPath = domain.DefaultInstallPath()
	}

	monitors := cfg.Monitors
	if monitors.IsEmpty() {
		monitors = domain.DefaultMonitors
	}

	var userInfo []byte
	if len(cfg.UserInfo) > 0 {
		data, err := json.Marshal(cfg.UserInfo)
		if err != nil {
			return NativeConfig{}, fmt.Errorf("%w: user info is not serializable: %v", domain.ErrInvalidConfiguration, err)
		}
		userInfo = data
	}

	return NativeConfig{
		InstallPath:  installPath,
		Monitors:     NativeMonitors(monitors),
		UserInfoJSON: userInfo,
		Store: NativeStoreConfig{
			ReportsPath:    cfg.ResolvedStore().ReportsPath,
			AppName:        cfg.Store.ResolveAppName(c.appNameFn),
			MaxReportCount: cfg.Store.MaxReportCount,
			CleanupPolicy:  NativeCleanup(cfg.Store.CleanupPolicy),
		},
	}, nil
}

func checkInstallPath(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

// NativeMonitors is a straight bit copy; domain flags share the native
// bit positions.
func NativeMonitors(m domain.MonitorType) uint {
	return uint(m)
}

func NativeCleanup(p domain.CleanupPolicy) NativeCleanupPolicy {
	switch p {
	case domain.CleanupOnSuccess:
		return NativeCleanupOnSuccess
	case domain.CleanupAlways:
		return NativeCleanupAlways
	default:
		return NativeCleanupNever
	}
}
