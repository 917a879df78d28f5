// Package cli provides the planner command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/agentic-planner/internal/app"
	"github.com/nhle/agentic-planner/internal/logging"
	"github.com/nhle/agentic-planner/internal/model"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// AppFactory builds the application for a command run.
type AppFactory func(ctx context.Context, cfg *model.AppConfig, logger zerolog.Logger) (*app.App, error)

func defaultAppFactory(ctx context.Context, cfg *model.AppConfig, logger zerolog.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// runtime is the state shared by subcommands once the root pre-run has
// loaded configuration.
type runtime struct {
	flags   *GlobalFlags
	factory AppFactory

	cfg       *model.AppConfig
	logger    zerolog.Logger
	logCloser io.Closer
}

// openApp builds the application. The caller closes it.
func (r *runtime) openApp(cmd *cobra.Command) (*app.App, error) {
	return r.factory(cmd.Context(), r.cfg, r.logger)
}

func (r *runtime) jsonOutput() bool {
	return r.flags.Output == OutputJSON
}

func newRootCmd(flags *GlobalFlags, info BuildInfo, factory AppFactory) *cobra.Command {
	if factory == nil {
		factory = defaultAppFactory
	}
	rt := &runtime{flags: flags, factory: factory, logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "planner",
		Short: "Goal planning with generated task plans and progress tracking",
		Long: `planner turns a free-text goal into a dated task plan and keeps the
tasks current from free-text progress reports.

Reports can be applied to one task, matched against all of a user's open
tasks, or mailed to a monitored inbox.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			cfg, err := model.LoadConfig(flags.Config)
			if err != nil {
				return err
			}
			rt.cfg = cfg

			level := cfg.Log.Level
			switch {
			case flags.Verbose:
				level = "debug"
			case flags.Quiet:
				level = "warn"
			}
			rt.logger, rt.logCloser = logging.New(logging.Options{
				Level:   level,
				File:    cfg.Log.File,
				Console: cmd.ErrOrStderr(),
			})
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if rt.logCloser != nil {
				return rt.logCloser.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, flags)

	addServeCommand(cmd, rt)
	addPlanCommand(cmd, rt)
	addTaskCommand(cmd, rt)
	addProgressCommand(cmd, rt)
	addInboxCommand(cmd, rt)
	addCredentialCommand(cmd, rt)

	return cmd
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	return newRootCmd(&GlobalFlags{}, info, nil).ExecuteContext(ctx)
}
