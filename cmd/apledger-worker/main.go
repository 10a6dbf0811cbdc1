package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"apledger/internal/amqp"
	"apledger/internal/backend"
	"apledger/internal/cli"
	applog "apledger/internal/log"
	"apledger/internal/services"
	"apledger/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "apledger-worker",
	Short:         "Copy the apledger store to Google Sheets whenever it changes",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./apledger.yaml)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := cli.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.Log.Level, applog.ComponentWorker)
	logger.Info("Starting apledger-worker", applog.FieldBackend, cfg.Backend)

	if err := cfg.RequireMirror(); err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// the worker consumes sync messages, it must not publish them, and it
	// always needs the current snapshot
	bcfg.AMQPURL = ""
	bcfg.CacheTTL = 0

	factory := backend.NewFactory(logger.Logger)
	primary, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	defer primary.Cleanup()

	target, err := factory.CreateMirror(ctx, bcfg)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, cfg.AMQP.ConnectAttempts)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	retry := services.RetryPolicy{
		Attempts:  cfg.Storage.RetryAttempts,
		BaseDelay: cfg.Storage.RetryDelay,
		MaxDelay:  10 * cfg.Storage.RetryDelay,
	}
	mirror := services.NewMirror(primary.Gateway, target, retry)

	runCtx, done := cli.GracefulShutdown(logger.Logger, shutdownTimeout, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	})

	err = worker.NewSyncWorker(client, mirror, cfg.Worker.ResyncInterval).Run(runCtx)
	if err != nil {
		client.Close()
		return fmt.Errorf("sync worker stopped: %w", err)
	}
	<-done
	return nil
}
