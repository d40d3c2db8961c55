// Command moodctl manages persons, moods and cycles directly against the
// configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moodcal/internal/backend"
	"moodcal/internal/calendar"
	"moodcal/internal/cli"
	"moodcal/internal/config"
	"moodcal/internal/cycle"
	"moodcal/internal/services"
	"moodcal/internal/stats"
)

func main() {
	cli.LoadEnvFile()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(os.Stdout, openFromEnv).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// opener builds the backend a command runs against.
type opener func(ctx context.Context, flags *globalFlags) (*config.Config, *backend.BackendResult, error)

type globalFlags struct {
	backend string
	dbPath  string
	verbose bool
}

// app is the state shared by every subcommand once the store is open.
type app struct {
	out     io.Writer
	cfg     *config.Config
	res     *backend.BackendResult
	moods   *services.MoodService
	cycles  *services.CycleService
	stats   *stats.Service
	project *calendar.Projector
}

func openFromEnv(ctx context.Context, flags *globalFlags) (*config.Config, *backend.BackendResult, error) {
	cfg := config.Load()
	if flags.backend != "" {
		cfg.DataBackend = flags.backend
	}
	if flags.dbPath != "" {
		cfg.SQLiteDBPath = flags.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	res, err := cli.OpenBackend(ctx, slog.Default(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, res, nil
}

func newRootCommand(out io.Writer, open opener) *cobra.Command {
	flags := &globalFlags{}
	a := &app{out: out}

	root := &cobra.Command{
		Use:          "moodctl",
		Short:        "Track daily moods for several people",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if flags.verbose {
				level = "debug"
			}
			cli.SetupLogger(level)

			cfg, res, err := open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			catalog, err := cycle.LoadCatalog(cfg.CyclePresetsFile)
			if err != nil {
				_ = res.Cleanup()
				return err
			}
			notifier := services.NewNotifier(res.Publisher, nil)
			a.cfg = cfg
			a.res = res
			a.moods = services.NewMoodService(res.Store, notifier)
			a.cycles = services.NewCycleService(res.Store, catalog, notifier)
			a.stats = stats.NewService(res.Store)
			a.project = calendar.NewProjector(res.Store)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.res == nil {
				return nil
			}
			return a.res.Cleanup()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "data backend (memory|sqlite), overrides DATA_BACKEND")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path, overrides SQLITE_DB_PATH")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newPersonCommand(a),
		newMoodCommand(a),
		newCycleCommand(a),
		newCalendarCommand(a),
		newStatsCommand(a),
		newExportCommand(a),
	)
	return root
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
