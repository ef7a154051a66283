package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/lunar/internal/api"
	"github.com/newthinker/lunar/internal/api/job"
	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/logger"
	"github.com/newthinker/lunar/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	reg, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}

	var metricsReg *metrics.Registry
	if cfg.Metrics.Enabled {
		metricsReg = metrics.NewRegistry()
	}

	runner := backtest.New(provider, log, metricsReg)

	maxJobs := cfg.Server.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 100
	}
	ttlHours := cfg.Server.JobTTLHours
	if ttlHours <= 0 {
		ttlHours = 1
	}
	jobs := job.NewStore(maxJobs, time.Duration(ttlHours)*time.Hour)

	server := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		MetricsPath: cfg.Metrics.Path,
	}, runner, reg, jobs, metricsReg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
