package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntP("limit", "n", 10, "Number of sessions to list")
	statsCmd.Flags().Bool("json", false, "Print as JSON")
}

var statsCmd = &cobra.Command{
	Use:   "stats [SESSION_ID]",
	Short: "Browse journaled sessions",
	Long: `Without arguments, list the most recent sessions in the journal.
With a session ID, rebuild that session from its events and print a recap.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, tuning, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Storage.Enabled {
		return fmt.Errorf("the journal is disabled; nothing to show")
	}
	db, journal, err := openJournal(cfg.Storage.Path, tuning)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		recap, err := storage.NewReconstructor(journal.Events).Recap(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if recap == nil {
			return fmt.Errorf("session %s not found", args[0])
		}
		if asJSON {
			return writeIndented(out, recap)
		}
		printRecap(out, recap)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	sessions, err := journal.Sessions.ListRecent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeIndented(out, sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions journaled yet.")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-16s %14s %8s %6s %8s\n", "Session", "Last seen", "Cookies", "Clicks", "Tier", "Status")
	for _, s := range sessions {
		status := "open"
		if s.Ended() {
			status = "ended"
		}
		fmt.Fprintf(out, "%-36s  %-16s %14s %8s %6s %8s\n",
			s.SessionID,
			humanize.Time(s.LastEventAt),
			humanize.Comma(s.Cookies),
			humanize.Comma(s.Clicks),
			tierLabel(s.AutoTier),
			status)
	}
	return nil
}

func printRecap(w io.Writer, r *storage.Recap) {
	s := r.Summary
	fmt.Fprintf(w, "Session %s\n", s.SessionID)
	fmt.Fprintf(w, "  Started:      %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Duration:     %s\n", r.Duration.Truncate(time.Second))
	fmt.Fprintf(w, "  Cookies:      %s\n", humanize.Comma(s.Cookies))
	fmt.Fprintf(w, "  Click power:  %s\n", humanize.Comma(s.ClickPower))
	fmt.Fprintf(w, "  Auto tier:    %s\n", tierLabel(s.AutoTier))
	fmt.Fprintf(w, "  Clicks:       %s\n", humanize.Comma(s.Clicks))
	fmt.Fprintf(w, "  Payouts:      %s (%s cookies)\n", humanize.Comma(s.Payouts), humanize.Comma(s.PayoutCookies))
	fmt.Fprintf(w, "  Peak CPS:     %.1f\n", s.PeakCPS)
	if len(r.Timeline) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTimeline:")
	for _, e := range r.Timeline {
		fmt.Fprintf(w, "  %s  %s\n", e.Timestamp, e.Summary)
	}
}

func writeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
