package domain

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultMaxReportCount = 20
	DefaultAppName        = "Unknown"

	defaultInstallDir = "CrashMonitor"
	reportsDirName    = "Reports"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// AppNameProvider looks up the host application's declared name.
type AppNameProvider func() (string, error)

// ExecutableAppName uses the base name of the running executable.
func ExecutableAppName() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	if name == "" || name == "." {
		return "", fmt.Errorf("cannot derive app name from %q", exe)
	}
	return name, nil
}

// DefaultInstallPath is the base directory used when an installation does
// not name one.
func DefaultInstallPath() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, defaultInstallDir)
}

type StoreConfiguration struct {
	ReportsPath    string
	AppName        string
	MaxReportCount int
	CleanupPolicy  CleanupPolicy
}

func DefaultStoreConfiguration() StoreConfiguration {
	return StoreConfiguration{
		MaxReportCount: DefaultMaxReportCount,
		CleanupPolicy:  CleanupNever,
	}
}

func (c StoreConfiguration) Validate() error {
	if c.MaxReportCount < 1 {
		return fmt.Errorf("%w: max report count must be at least 1, got %d", ErrInvalidConfiguration, c.MaxReportCount)
	}
	if !c.CleanupPolicy.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, c.CleanupPolicy)
	}
	return nil
}

// ResolveReportsPath returns the explicit reports path or the Reports
// directory under installPath (DefaultInstallPath when empty).
func (c StoreConfiguration) ResolveReportsPath(installPath string) string {
	if c.ReportsPath != "" {
		return filepath.Clean(c.ReportsPath)
	}
	if installPath == "" {
		installPath = DefaultInstallPath()
	}
	return filepath.Join(filepath.Clean(installPath), reportsDirName)
}

// ResolveAppName never fails: an unusable provider falls back to
// DefaultAppName.
func (c StoreConfiguration) ResolveAppName(provider AppNameProvider) string {
	if name := strings.TrimSpace(c.AppName); name != "" {
		return name
	}
	if provider != nil {
		if name, err := provider(); err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return DefaultAppName
}

type InstallConfiguration struct {
	InstallPath string
	Monitors    MonitorType
	Store       StoreConfiguration
	UserInfo    map[string]any
}

func NewInstallConfiguration(installPath string, monitors MonitorType, store StoreConfiguration, userInfo map[string]any) InstallConfiguration {
	return InstallConfiguration{
		InstallPath: installPath,
		Monitors:    monitors,
		Store:       store,
		UserInfo:    maps.Clone(userInfo),
	}
}

// ResolvedStore pins the store's reports path to this installation so a
// store opened with the result reads the directory that was installed.
func (c InstallConfiguration) ResolvedStore() StoreConfiguration {
	store := c.Store
	store.ReportsPath = store.ResolveReportsPath(c.InstallPath)
	return store
}
