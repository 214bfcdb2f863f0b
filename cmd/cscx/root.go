package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prompt-general/cscx/internal/app"
	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/logging"
)

// runtime carries state shared by every subcommand
type runtime struct {
	configPath string
	cfg        *config.Config
	flushLogs  func()
}

// NewRoot builds the cscx command tree
func NewRoot() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:           "cscx",
		Short:         "Customer expansion opportunity engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return rt.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.flushLogs != nil {
				rt.flushLogs()
			}
		},
	}
	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "Configuration file path (default $CONFIG_PATH or "+config.DefaultPath+")")

	root.AddCommand(
		serveCmd(rt),
		scanCmd(rt),
		opportunityCmd(rt),
		importCmd(rt),
		versionCmd(),
	)
	return root
}

func (rt *runtime) load() error {
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, flush, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.flushLogs = flush
	return nil
}

func (rt *runtime) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, rt.cfg)
}
