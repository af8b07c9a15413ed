// Package cli wires the cookie clicker packages into the cookie-clicker
// command: a WebSocket/HTTP server, a terminal front end, an offline
// strategy simulator and a journal browser.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cookie-clicker",
	Short: "Idle cookie clicker engine",
	Long: `Cookie clicker: click for cookies, buy click-power upgrades and unlock
tiers of automatic production. Run it in the terminal with 'play', expose it
to browsers with 'serve', or compare buying strategies with 'simulate'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "cookie.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().String("db", "", "Journal database path (overrides storage.path)")
	rootCmd.PersistentFlags().Bool("no-journal", false, "Run without the SQLite journal")
	rootCmd.PersistentFlags().String("profile", "", "Tuning profile: default, stress or low (overrides tuning.profile)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
