package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"apledger/internal/backend"
	"apledger/internal/cli"
	"apledger/internal/config"
	applog "apledger/internal/log"
	"apledger/internal/services"
	"apledger/internal/session"
)

// skipSetup marks commands that run without config, storage or login.
const skipSetup = "skip-setup"

// app is the state shared by every command of one invocation.
type app struct {
	cfg      *config.Config
	logger   *applog.Logger
	backend  *backend.BackendResult
	payables *services.Payables
	session  session.Session
	out      io.Writer
	errOut   io.Writer
}

var (
	cfgFile string
	state   = &app{out: os.Stdout, errOut: os.Stderr}
)

var rootCmd = &cobra.Command{
	Use:           "apledger",
	Short:         "Accounts-payable ledger: pending payments, recurring bills and notes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[skipSetup] == "true" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return state.setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return state.close()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := cli.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.Log.Level, applog.ComponentApp)

	gate := session.NewGate(cfg.Auth.PasswordHash)
	a.session, err = gate.Open(session.Prompt(os.Stdin, a.errOut, "Password: "), 3, time.Now())
	if err != nil {
		return err
	}
	a.logger.Debug("Session opened", "started_at", a.session.StartedAt, "gated", gate.Required())

	a.backend, err = cli.InitBackend(ctx, a.logger.Logger, cfg)
	if err != nil {
		return err
	}

	rates, err := cfg.RateTable()
	if err != nil {
		return err
	}
	retry := services.RetryPolicy{
		Attempts:  cfg.Storage.RetryAttempts,
		BaseDelay: cfg.Storage.RetryDelay,
		MaxDelay:  10 * cfg.Storage.RetryDelay,
	}
	a.payables = services.NewPayables(a.backend.Gateway,
		services.WithRates(rates),
		services.WithRetry(retry),
		services.WithDropReporter(func(kind string, n int) {
			cli.PrintDropped(a.errOut, kind, n)
		}),
	)
	return nil
}

func (a *app) close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	cleanup := a.backend.Cleanup
	a.backend = nil
	return cleanup()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./apledger.yaml)")

	rootCmd.AddCommand(addCmd, listCmd, payCmd, rmCmd, exportCmd, editCmd, reconcileCmd, importCmd, noteCmd, passwdCmd)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		_ = state.close()
		os.Exit(1)
	}
}
