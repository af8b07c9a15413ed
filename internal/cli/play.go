package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CookieClicker/internal/audio"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/tui"
)

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("mute", false, "Disable sound")
	playCmd.Flags().Float64("volume", 0.5, "Sound volume between 0 and 1")
	playCmd.Flags().String("log", "", "Write logs to this file instead of discarding them")
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Long: `Play one session in the terminal. Space or Enter clicks, 'u' buys the
click-power upgrade, 'a' unlocks or advances auto production, 'q' quits.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, tuning, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The screen owns stdout while the game runs.
	var logOut io.Writer = io.Discard
	if path, _ := cmd.Flags().GetString("log"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	appLogger := logger.NewWithWriter(logOut)

	rt, err := bootstrap(cfg, tuning, appLogger)
	if err != nil {
		return err
	}

	var sounds tui.Sounds
	if mute, _ := cmd.Flags().GetBool("mute"); !mute {
		volume, _ := cmd.Flags().GetFloat64("volume")
		sm := audio.NewSoundManager(volume)
		if err := sm.Initialize(); err != nil {
			appLogger.Warn("Audio unavailable, playing silently: " + err.Error())
		} else {
			defer sm.Cleanup()
			sounds = sm
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		rt.closeDB()
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		rt.closeDB()
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	rt.start(ctx, false)
	app := tui.New(screen, rt.engine, rt.ticker, sounds, cfg.FrameInterval())
	err = app.Run(ctx)
	screen.Fini()
	rt.stop()

	if err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}

	snap := rt.engine.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "Session %s ended with %s cookies.\n", rt.engine.SessionID(), humanize.Comma(snap.ResourceCount))
	return nil
}
