// Package cli is the command line of the middleware: the long running
// server plus one-shot sync, catalog and job commands.
package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"WooWithBizimHesap/internal/config"
	"WooWithBizimHesap/internal/version"
	"WooWithBizimHesap/pkg/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type root struct {
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
}

// NewRootCmd builds the whole command tree.
func NewRootCmd() *cobra.Command {
	r := &root{}
	cmd := &cobra.Command{
		Use:           "woobizimhesap",
		Short:         "WooCommerce and BizimHesap synchronization",
		Version:       version.GetVersion().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.init()
		},
	}
	cmd.PersistentFlags().StringVar(&r.cfgFile, "config", config.DefaultPath, "path to the INI config file")

	cmd.AddCommand(r.serveCmd(), r.syncCmd(), r.catalogCmd(), r.jobsCmd())
	return cmd
}

// Execute runs the command line until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		logging.GetLogger().Error(err)
		stop()
		os.Exit(1)
	}
}

func (r *root) init() error {
	cfg, err := config.Load(r.cfgFile)
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.LOG.Level)
	if cfg.LOG.File != "" {
		if err := logging.SetFile(cfg.LOG.File); err != nil {
			return errors.Wrapf(err, "failed to open log file %s", cfg.LOG.File)
		}
	}
	r.cfg = cfg
	r.logger = logging.GetLogger()
	return nil
}

// run builds the app for one command and closes it afterwards.
func (r *root) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, r.cfg, r.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
