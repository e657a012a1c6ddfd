// Package cli provides the operational command-line interface for eventdex.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/eventdex/internal/bootstrap"
	"github.com/okian/eventdex/internal/config"
	"github.com/okian/eventdex/pkg/logger"
)

// Version is set at build time.
var Version = "0.1.0"

// env is the state shared by one command invocation.
type env struct {
	verbose bool

	cfg *config.Config
	log logger.Logger

	pipeline *bootstrap.Pipeline
}

// open builds the pipeline on first use; commands that only need
// configuration never connect to the store.
func (e *env) open(ctx context.Context) (*bootstrap.Pipeline, error) {
	if e.pipeline != nil {
		return e.pipeline, nil
	}
	p, err := bootstrap.Build(ctx, e.cfg, e.log)
	if err != nil {
		return nil, err
	}
	e.pipeline = p
	return p, nil
}

// NewRootCmd returns the eventdex command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "eventdex",
		Short: "Operate the community event index",
		Long: `eventdex extracts public events from forum posts, geocodes their
locations and keeps a queryable index keyed by post id.

Configuration is read from EVENTDEX_CONFIG (YAML) and EVENTDEX_* variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			e.cfg = cfg

			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return err
			}
			if e.verbose {
				_ = logger.SetLevelString("debug")
			}
			e.log = logger.New(cmd.ErrOrStderr(), nil)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.pipeline == nil {
				return nil
			}
			return e.pipeline.Close()
		},
	}

	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newReindexCmd(e))
	root.AddCommand(newListCmd(e))
	root.AddCommand(newNormalizeCmd(e))
	root.AddCommand(newGenerateCmd(e))
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
