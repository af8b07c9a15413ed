package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/sim"
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringSliceP("strategy", "s", nil, "Strategies to run (default: all)")
	simulateCmd.Flags().DurationP("duration", "d", 10*time.Minute, "Simulated play time")
	simulateCmd.Flags().Duration("step", 100*time.Millisecond, "Simulated frame length")
	simulateCmd.Flags().Float64("cps", 5, "Clicks per second")
	simulateCmd.Flags().Bool("json", false, "Print the reports as JSON")
	simulateCmd.Flags().Bool("record", false, "Journal each run as a session")
	simulateCmd.Flags().BoolP("verbose", "v", false, "List every purchase")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compare buying strategies offline",
	Long: `Play simulated sessions on a virtual clock, one per strategy, and report
how many cookies each ends with. No wall-clock time passes.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, tuning, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	game, err := cfg.ToProgression()
	if err != nil {
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("strategy")
	if len(names) == 0 {
		names = sim.StrategyNames()
	}
	strategies := make([]sim.Strategy, 0, len(names))
	for _, n := range names {
		s, err := sim.StrategyByName(n)
		if err != nil {
			return err
		}
		strategies = append(strategies, s)
	}

	opts := sim.DefaultOptions()
	opts.Game = game
	opts.Duration, _ = cmd.Flags().GetDuration("duration")
	opts.Step, _ = cmd.Flags().GetDuration("step")
	opts.ClicksPerSecond, _ = cmd.Flags().GetFloat64("cps")

	var persister events.EventPersister
	if record, _ := cmd.Flags().GetBool("record"); record {
		if !cfg.Storage.Enabled {
			return fmt.Errorf("--record needs the journal; drop --no-journal")
		}
		db, journal, err := openJournal(cfg.Storage.Path, tuning)
		if err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
		defer db.Close()
		persister = journal
	}

	var reports []sim.Report
	if persister == nil {
		reports, err = sim.Compare(opts, strategies...)
		if err != nil {
			return err
		}
	} else {
		for _, s := range strategies {
			o := opts
			o.Strategy = s
			o.EventLog = events.NewEventLog(persister, 0)
			rep, err := sim.Run(o)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", s.Name(), err)
			}
			if _, err := o.EventLog.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("failed to journal %s run: %w", s.Name(), err)
			}
			reports = append(reports, rep)
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeIndented(out, reports)
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	printReports(out, opts, reports, verbose)
	return nil
}

func printReports(w io.Writer, opts sim.Options, reports []sim.Report, verbose bool) {
	fmt.Fprintf(w, "Simulated %s at %g clicks/s\n\n", opts.Duration, opts.ClicksPerSecond)
	fmt.Fprintf(w, "%-14s %14s %14s %10s %6s %14s\n", "Strategy", "Cookies", "Earned", "Power", "Tier", "Spent")
	for _, r := range reports {
		fmt.Fprintf(w, "%-14s %14s %14s %10s %6s %14s\n",
			r.Strategy,
			humanize.Comma(r.FinalCookies),
			humanize.Comma(r.TotalEarned()),
			humanize.Comma(r.ClickPower),
			tierLabel(r.AutoTier),
			humanize.Comma(r.Spent))
	}
	if !verbose {
		return
	}
	for _, r := range reports {
		fmt.Fprintf(w, "\n%s:\n", r.Strategy)
		for _, m := range r.Milestones {
			fmt.Fprintf(w, "  %10s  %s\n", m.At.Truncate(time.Second), m.Description)
		}
	}
}

func tierLabel(tier int) string {
	if tier < 0 {
		return "-"
	}
	return fmt.Sprintf("Lv%d", tier+1)
}
