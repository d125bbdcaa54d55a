package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hanpama/typegraph/internal/demo"
	"github.com/hanpama/typegraph/internal/logging"
	"github.com/hanpama/typegraph/internal/mapping"
)

// app carries what the subcommands share.
type app struct {
	logLevel  string
	logFormat string
	log       *logrus.Logger
	now       func() time.Time
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}
	cmd := &cobra.Command{
		Use:   "typegraph",
		Short: "Map Go types to a GraphQL schema",
		Long: `typegraph builds a GraphQL schema from Go types by reflection and
executes operations against it.

The commands below work on the bundled bookstore graph: print its SDL,
describe it as a proto3 file, run a single operation, or serve it over HTTP.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log format (text, json)")

	cmd.AddCommand(
		newSDLCmd(a),
		newProtoCmd(a),
		newExecCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	log, err := logging.New(a.logLevel, a.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// build maps the bookstore over a freshly seeded store.
func (a *app) build(opts ...mapping.Option) (*mapping.Built, error) {
	opts = append([]mapping.Option{mapping.WithLogger(a.log)}, opts...)
	return demo.Build(demo.Seeded(a.now), opts...)
}
