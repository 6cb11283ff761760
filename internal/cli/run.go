package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/roombot/internal/config"
	"github.com/rcliao/roombot/internal/dispatch"
	"github.com/rcliao/roombot/internal/transport"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to chat and serve plugin commands",
		Long:  "Load the plugins, connect the transport and dispatch incoming messages and reactions until interrupted.",
		Run:   runBot,
	}

	cmd.Flags().StringP("transport", "t", "", "Transport: console or discord (default: $ROOMBOT_TRANSPORT or console)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().Duration("timer-interval", 0, "How often plugin timers run (default: $ROOMBOT_TIMER_INTERVAL or 30s)")

	RootCmd.AddCommand(cmd)
}

func runBot(cmd *cobra.Command, args []string) {
	s := getSettings()
	if v, _ := cmd.Flags().GetString("transport"); v != "" {
		s.Transport = v
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		s.MetricsAddr = v
	}
	if v, _ := cmd.Flags().GetDuration("timer-interval"); v > 0 {
		s.TimerInterval = v
	}
	if err := s.Validate(); err != nil {
		exitErr("settings", err)
	}

	logger := newLogger(s)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, s, logger); err != nil {
		exitErr("run", err)
	}
}

func openTransport(s config.Settings, logger *slog.Logger) (transport.Client, error) {
	switch s.Transport {
	case "discord":
		return transport.NewDiscord(s.DiscordToken, logger)
	default:
		return transport.NewConsole(os.Stdin, os.Stdout, transport.ConsoleOptions{
			Room:    s.ConsoleRoom,
			Members: s.ConsoleMembers,
		}), nil
	}
}

// serve runs the bot until ctx is done or the transport stops delivering events.
func serve(ctx context.Context, s config.Settings, logger *slog.Logger) error {
	client, err := openTransport(s, logger)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := dispatch.NewMetrics(promReg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	reg := openRegistry(s, logger)
	d := dispatch.New(reg, client,
		dispatch.WithPrefix(s.CommandPrefix),
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer client.Close()
	logger.Info("roombot running", "transport", s.Transport, "plugins", len(reg.Plugins()), "prefix", s.CommandPrefix)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return d.Serve(ctx, client.Events())
	})
	g.Go(func() error {
		return dispatch.NewScheduler(d, s.TimerInterval).Run(ctx)
	})
	if s.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              s.MetricsAddr,
			Handler:           metricsMux(promReg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", s.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("roombot stopped")
	return err
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
