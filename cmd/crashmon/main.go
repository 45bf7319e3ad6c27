package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/kadirbelkuyu/crashmon/internal/config"
	"github.com/kadirbelkuyu/crashmon/internal/domain"
	"github.com/kadirbelkuyu/crashmon/internal/monitor"
	"github.com/kadirbelkuyu/crashmon/internal/redaction"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const reportExt = ".json"

var (
	cfgFile     string
	reportsPath string
	appName     string
	logLevel    string
	deleteAll   bool
	showRaw     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crashmon",
	Short: "Inspect crash reports written by the crash capture service",
	Long: `crashmon reads the crash reports persisted by the capture service,
renders them as Apple-style crash logs and manages their retention.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored crash reports",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a formatted crash report",
	Long: `Print a crash report. The id is decimal unless it carries a 0x
prefix; the report file name, with or without .json, is accepted as well.
The hex digits in a file name need the 0x prefix when given alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one crash report, or all with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDelete,
}

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved reports directory",
	Args:  cobra.NoArgs,
	RunE:  runPath,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.crashmon/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&reportsPath, "reports-path", "", "reports directory (overrides reports.path)")
	rootCmd.PersistentFlags().StringVar(&appName, "app-name", "", "application name used in report file names")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every report")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print the raw JSON report")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(pathCmd)
}

// session is what every command needs: the loaded configuration, the
// store settings derived from it and a monitor to act through.
type session struct {
	cfg     *config.Config
	store   domain.StoreConfiguration
	logger  *zap.Logger
	monitor *monitor.Monitor
}

func newSession(extra ...monitor.Option) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if reportsPath != "" {
		cfg.Reports.Path = reportsPath
	}
	if appName != "" {
		cfg.Reports.AppName = appName
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	store, err := cfg.StoreConfiguration()
	if err != nil {
		return nil, err
	}

	style, err := cfg.FormatStyle()
	if err != nil {
		return nil, err
	}

	redactor, err := redaction.New(cfg.Redaction)
	if err != nil {
		return nil, fmt.Errorf("failed to init redaction: %w", err)
	}

	logger := mustBuildLogger(cfg.Log.Level)

	opts := []monitor.Option{
		monitor.WithLogger(logger),
		monitor.WithStyle(style),
		monitor.WithTimeout(cfg.Format.Timeout),
		monitor.WithConcurrency(cfg.Format.Concurrency),
		monitor.WithRedactor(redactor),
		monitor.WithInstallPath(cfg.Install.Path),
	}
	opts = append(opts, extra...)

	return &session{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		monitor: monitor.New(nil, opts...),
	}, nil
}

// appName is the name the store resolves for this session's settings.
func (s *session) appName() string {
	return s.store.ResolveAppName(domain.ExecutableAppName)
}

func (s *session) parseFileName(name string) (int64, bool) {
	stem, ok := strings.CutSuffix(filepath.Base(name), reportExt)
	if !ok {
		return 0, false
	}
	return domain.ParseReportName(s.appName(), stem)
}

func (s *session) close() {
	_ = s.logger.Sync()
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	reports, err := s.monitor.AllReports(ctx, s.store)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), renderReportList(s.appName(), reports))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	id, err := parseReportID(args[0], s.parseFileName)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := s.monitor.Report(ctx, s.store, id)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report %s not found", args[0])
	}

	out := cmd.OutOrStdout()
	if showRaw || !report.HasFormattedText() {
		if !showRaw {
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("report could not be formatted, printing raw JSON"))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.RawValue)
	}

	fmt.Fprint(out, *report.AppleFmtValue)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if deleteAll == (len(args) == 1) {
		return fmt.Errorf("specify either a report id or --all")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	if deleteAll {
		if err := s.monitor.DeleteAllReports(s.store); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Deleted all reports"))
		return nil
	}

	store, err := s.monitor.OpenStore(s.store)
	if err != nil {
		return err
	}

	id, err := parseReportID(args[0], store.ParseFileName)
	if err != nil {
		return err
	}
	if err := store.Delete(id); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted %s", domain.DeriveName(store.AppName(), id))))
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	store, err := s.monitor.OpenStore(s.store)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), store.Path())
	return nil
}

// parseReportID accepts a report file name, a 0x-prefixed hex id or a
// decimal id. Bare digits are never read as hex.
func parseReportID(s string, parseFileName func(string) (int64, bool)) (int64, error) {
	s = strings.TrimSpace(s)
	if id, ok := parseFileName(s); ok {
		return id, nil
	}
	if id, ok := parseFileName(s + reportExt); ok {
		return id, nil
	}

	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		u, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid report id %q", s)
		}
		return int64(u), nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid report id %q: hex ids need a 0x prefix", s)
	}
	return id, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
