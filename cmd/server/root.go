package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"certflow/internal/lifecycle/expiry"
	"certflow/internal/platform/config"
	"certflow/internal/platform/httpserver"
	"certflow/internal/platform/logger"
	"certflow/internal/platform/postgres"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:           "certflow",
		Short:         "Certification lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (CERTFLOW_ env vars override it)")
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API and run the certificate expiry sweep",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			RunE:  migrate,
		},
		&cobra.Command{
			Use:   "expire-certificates",
			Short: "Expire every active certificate past its expiry date, once",
			RunE:  expireCertificates,
		},
	)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)
	return cfg, log, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := build(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer rt.close()

	sweeper, err := expiry.New(rt.service, cfg.Certificate.ExpirySweep, expiry.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	srv := httpserver.New(cfg.Server, newRouter(rt))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpserver.Run(gCtx, srv, cfg.Server.ShutdownTimeout, log); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("certificate expiry sweep scheduled", "spec", cfg.Certificate.ExpirySweep)
		return sweeper.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("certflow stopped with error", "error", err)
		return err
	}
	log.Info("certflow stopped")
	return nil
}

func migrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	if cfg.DB.URL == "" {
		return fmt.Errorf("db.url is required to run migrations")
	}
	ctx := cmd.Context()
	db, err := postgres.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	return postgres.Migrate(ctx, db, log)
}

func expireCertificates(cmd *cobra.Command, _ []string) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := build(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.close()

	sweeper, err := expiry.New(rt.service, cfg.Certificate.ExpirySweep, expiry.WithLogger(log))
	if err != nil {
		return err
	}
	n, err := sweeper.SweepOnce(ctx)
	log.Info("certificate expiry sweep finished", "expired", n)
	return err
}
