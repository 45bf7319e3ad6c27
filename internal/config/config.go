package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"github.com/kadirbelkuyu/crashmon/internal/format"
	"github.com/spf13/viper"
)

type Config struct {
	Install   InstallConfig
	Reports   ReportsConfig
	Format    FormatConfig
	Redaction RedactionConfig
	Log       LogConfig
}

type InstallConfig struct {
	Path     string
	Monitors []string
	UserInfo map[string]any `mapstructure:"user_info"`
}

type ReportsConfig struct {
	Path          string
	AppName       string `mapstructure:"app_name"`
	MaxCount      int    `mapstructure:"max_count"`
	CleanupPolicy string `mapstructure:"cleanup_policy"`
}

type FormatConfig struct {
	Style       string
	Timeout     time.Duration
	Concurrency int
}

type RedactionConfig struct {
	Enabled      bool
	Replacement  string
	KeyAllowlist []string `mapstructure:"key_allowlist"`
	KeyDenylist  []string `mapstructure:"key_denylist"`
	TextPatterns []string `mapstructure:"text_patterns"`
}

type LogConfig struct {
	Level string
}

func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".crashmon"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("install.path", "")
	v.SetDefault("install.monitors", []string{"machException", "signal", "cppException", "nsException"})
	v.SetDefault("install.user_info", map[string]any{})
	v.SetDefault("reports.path", "")
	v.SetDefault("reports.app_name", "")
	v.SetDefault("reports.max_count", domain.DefaultMaxReportCount)
	v.SetDefault("reports.cleanup_policy", "never")
	v.SetDefault("format.style", "side-by-side")
	v.SetDefault("format.timeout", "10s")
	v.SetDefault("format.concurrency", 4)
	v.SetDefault("redaction.enabled", false)
	v.SetDefault("redaction.replacement", "***")
	v.SetDefault("log.level", "info")

	v.AutomaticEnv()
	v.SetEnvPrefix("CRASHMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) StoreConfiguration() (domain.StoreConfiguration, error) {
	policy, err := domain.ParseCleanupPolicy(c.Reports.CleanupPolicy)
	if err != nil {
		return domain.StoreConfiguration{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	store := domain.StoreConfiguration{
		ReportsPath:    c.Reports.Path,
		AppName:        c.Reports.AppName,
		MaxReportCount: c.Reports.MaxCount,
		CleanupPolicy:  policy,
	}
	if err := store.Validate(); err != nil {
		return domain.StoreConfiguration{}, err
	}
	return store, nil
}

func (c *Config) InstallConfiguration() (domain.InstallConfiguration, error) {
	store, err := c.StoreConfiguration()
	if err != nil {
		return domain.InstallConfiguration{}, err
	}

	monitors, err := domain.ParseMonitorType(c.Install.Monitors)
	if err != nil {
		return domain.InstallConfiguration{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	return domain.NewInstallConfiguration(c.Install.Path, monitors, store, c.Install.UserInfo), nil
}

func (c *Config) FormatStyle() (format.Style, error) {
	style, err := format.ParseStyle(c.Format.Style)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return style, nil
}
