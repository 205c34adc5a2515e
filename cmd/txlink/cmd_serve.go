package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/txlink/internal/api"
	"github.com/persistorai/txlink/internal/config"
	"github.com/persistorai/txlink/internal/service"
	"github.com/persistorai/txlink/internal/ws"
)

// HTTP server timeouts. WriteTimeout covers the longest synchronous search.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 3 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	var noTxEvents bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the txlink HTTP server",
		Long: "Serves synchronous and background connection searches over HTTP and\n" +
			"streams search progress over WebSocket. Configured from the environment.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := cfg.Logger(os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var hubOpts []ws.HubOption
			if noTxEvents {
				hubOpts = append(hubOpts, ws.WithoutTxEvents())
			}
			return runServer(ctx, cfg, log, hubOpts...)
		},
	}
	cmd.Flags().BoolVar(&noTxEvents, "no-tx-events", false, "Do not stream per-transaction events to WebSocket subscribers")
	return cmd
}

// runServer serves until ctx is done, then drains HTTP requests, WebSocket
// subscribers and background searches in that order.
func runServer(ctx context.Context, cfg *config.Config, log *logrus.Logger, hubOpts ...ws.HubOption) error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	lc := newLedgerClient(cfg, log)
	if cfg.EtherscanAPIKey.Value() == "" {
		log.Warn("ETHERSCAN_API_KEY is not set; searches will be heavily rate limited")
	}

	hub := ws.NewHub(log, hubOpts...)
	go hub.Run(appCtx)

	finder := service.NewConnectionService(lc, service.MultiSink{service.NewLogSink(log), hub}, log)
	jobs := service.NewJobStore(service.DefaultJobCapacity, service.DefaultJobTTL)
	worker := service.NewSearchWorker(finder, jobs, log, cfg.SearchQueueSize, cfg.SearchWorkers)

	router := api.NewRouter(appCtx, &api.RouterDeps{
		Log:         log,
		Hub:         hub,
		Finder:      finder,
		Queue:       worker,
		Ledger:      lc,
		Throttle:    lc.Throttle(),
		CORSOrigins: cfg.CORSOrigins,
		APIKey:      cfg.ServerAPIKey.Value(),
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateLimitBurst,
		Version:     config.Version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"version": config.Version,
			"auth":    cfg.ServerAPIKey.Value() != "",
		}).Info("txlink server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		hub.Shutdown()
		cancelApp()
		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(appCtx)
		return nil
	})

	return g.Wait()
}
