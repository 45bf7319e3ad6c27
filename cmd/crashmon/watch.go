package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirbelkuyu/crashmon/internal/metrics"
	"github.com/kadirbelkuyu/crashmon/internal/monitor"
	"github.com/kadirbelkuyu/crashmon/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	metricsAddr string
	dedupTTL    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the reports directory for new crash reports",
	Long: `Watch the reports directory and print each new crash report as the
capture service writes it. With --metrics-addr, Prometheus metrics and a
health endpoint are served while watching.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "HTTP address for /metrics and /health (disabled when empty)")
	watchCmd.Flags().DurationVar(&dedupTTL, "dedup-ttl", time.Minute, "suppress repeated events for the same report within this window")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	s, err := newSession(monitor.WithMetrics(m))
	if err != nil {
		return err
	}
	defer s.close()

	store, err := s.monitor.OpenStore(s.store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	handler := func(id int64) error {
		report, err := s.monitor.Report(ctx, s.store, id)
		if err != nil {
			return err
		}
		if report != nil {
			fmt.Fprintln(out, renderReportLine(*report))
		}
		return nil
	}

	w := watcher.New(store.Path(), store.ParseFileName, handler,
		watcher.WithDedupTTL(dedupTTL),
		watcher.WithLogger(s.logger),
	)

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Watching %s", store.Path())))
	return serve(ctx, w, metricsAddr, registry, s.logger)
}

// serve runs the watcher and, when addr is set, the metrics server until
// ctx is done or either fails.
func serve(ctx context.Context, w *watcher.Watcher, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	errCh := make(chan error, 2)

	var httpServer *http.Server
	if addr != "" {
		httpServer = &http.Server{
			Addr:              addr,
			Handler:           newMux(gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", zap.String("addr", addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	go func() {
		if err := w.Start(ctx); err != nil {
			errCh <- fmt.Errorf("watcher error: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func newMux(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}
