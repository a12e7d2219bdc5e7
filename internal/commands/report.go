// Package commands holds the finsight-report command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"finsight/internal/cli"
	"finsight/internal/config"
	"finsight/internal/core"
	"finsight/internal/report"
	"finsight/internal/reveal"
	"finsight/internal/services"
	"finsight/internal/storage"
)

type ReportOptions struct {
	User     string
	Filter   string
	DBPath   string
	Interval time.Duration
	Instant  bool
}

func AddReportArgs(cmd *cobra.Command, o *ReportOptions) {
	cmd.Flags().StringVarP(&o.User, "user", "u", "",
		"User whose transactions are analysed (required).")
	cmd.Flags().StringVarP(&o.Filter, "filter", "f", string(core.FilterMonth),
		"Time window: all, day, week or month.")
	cmd.Flags().StringVar(&o.DBPath, "db", "",
		"SQLite database path. Defaults to SQLITE_DB_PATH.")
	cmd.Flags().DurationVar(&o.Interval, "interval", 0,
		"Delay between revealed characters. Defaults to REVEAL_INTERVAL.")
	cmd.Flags().BoolVar(&o.Instant, "instant", false,
		"Print the report at once instead of typing it out.")
}

// GeneratorFactory builds the report generator from the loaded config.
type GeneratorFactory func(cfg *config.Config) services.ReportGenerator

// New returns the finsight-report command.
func New() *cobra.Command {
	return newReportCommand(func(cfg *config.Config) services.ReportGenerator {
		return cli.NewReportClient(cfg)
	})
}

func newReportCommand(newGenerator GeneratorFactory) *cobra.Command {
	o := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "finsight-report",
		Short: "Generate a financial report for a user's transactions.",
		Example: `
finsight-report --user alice --filter month
finsight-report -u alice -f all --db ./data/finsight.db --instant
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(o.User) == "" {
				return errors.New("--user is required")
			}
			filter, err := core.ParseFilter(o.Filter)
			if err != nil {
				return err
			}

			cfg := config.Load()
			if o.DBPath != "" {
				cfg.SQLiteDBPath = o.DBPath
			}
			if o.Interval > 0 {
				cfg.RevealInterval = o.Interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runReport(ctx, cmd.OutOrStdout(), cfg, o, filter, newGenerator(cfg))
		},
	}

	AddReportArgs(cmd, o)
	return cmd
}

func runReport(ctx context.Context, out io.Writer, cfg *config.Config, o *ReportOptions, filter core.Filter, gen services.ReportGenerator) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	txs, err := services.NewTransactionService(repo).Fetch(ctx, o.User, filter, time.Now().In(cfg.Location()))
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintf(out, "No transactions for %s (%s).\n", o.User, filter)
		return nil
	}

	prompt, err := report.PromptBuilder{MaxChars: cfg.ReportPromptMaxChars}.Build(report.EntriesFrom(txs))
	if err != nil {
		return err
	}
	text, err := gen.GenerateReport(ctx, prompt)
	if err != nil {
		return err
	}

	if o.Instant {
		fmt.Fprintln(out, text)
		return nil
	}
	return typeOut(ctx, out, text, cfg.RevealInterval)
}

// typeOut reveals text on out and returns once the reveal ends. Cancelling
// ctx stops it early.
func typeOut(ctx context.Context, out io.Writer, text string, interval time.Duration) error {
	term := newTerminal(out)
	ctrl := reveal.NewController(term, interval)
	ctrl.Start(text)

	select {
	case <-term.done:
	case <-ctx.Done():
		ctrl.Stop()
		<-term.done
	}
	return term.err
}

// terminal is a reveal surface over a writer.
type terminal struct {
	out  io.Writer
	done chan struct{}
	once sync.Once
	err  error
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out, done: make(chan struct{})}
}

func (t *terminal) Reset() {}

func (t *terminal) Append(r rune) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.out, string(r))
}

func (t *terminal) Finish(final reveal.State) {
	t.once.Do(func() {
		if t.err == nil {
			_, t.err = io.WriteString(t.out, "\n")
		}
		close(t.done)
	})
}
