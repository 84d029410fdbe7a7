// Package cli implements the investctl subcommands.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aristath/investlog/internal/config"
	"github.com/aristath/investlog/internal/di"
	"github.com/aristath/investlog/pkg/logger"
	"github.com/google/subcommands"
)

// Env is an opened application: configuration, services and jobs.
type Env struct {
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances
}

// Close releases the databases
func (e *Env) Close() error {
	return e.Container.Close()
}

// App carries what every subcommand needs.
type App struct {
	Out  io.Writer
	Err  io.Writer
	Open func() (*Env, error)
}

// NewApp returns an App that loads configuration from the environment and
// logs to stderr.
func NewApp() *App {
	return &App{
		Out:  os.Stdout,
		Err:  os.Stderr,
		Open: OpenFromEnv,
	}
}

// OpenFromEnv loads configuration from the environment and wires the
// application.
func OpenFromEnv() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Out:    os.Stderr,
	})
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Container: container, Jobs: jobs}, nil
}

// Register the subcommands.
func Register(c *subcommands.Commander, app *App) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&refreshCmd{app: app}, "prices")
	c.Register(&snapshotCmd{app: app}, "prices")

	c.Register(&calcCmd{app: app}, "profit")
	c.Register(&recalcCmd{app: app}, "profit")

	c.Register(&monthlyCmd{app: app}, "reports")
	c.Register(&yearlyCmd{app: app}, "reports")
	c.Register(&summaryCmd{app: app}, "reports")
}

// run opens the application, runs fn and maps its error to an exit status.
func (a *App) run(ctx context.Context, fn func(ctx context.Context, env *Env) error) subcommands.ExitStatus {
	env, err := a.Open()
	if err != nil {
		fmt.Fprintf(a.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := env.Close(); err != nil {
			fmt.Fprintf(a.Err, "Warning: %v\n", err)
		}
	}()

	if err := fn(ctx, env); err != nil {
		fmt.Fprintf(a.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *App) usageError(f *flag.FlagSet, format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, "Error: "+format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}

func (a *App) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
