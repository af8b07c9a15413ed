package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CookieClicker/internal/api"
	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
	"github.com/MRamiBalles/CookieClicker/internal/network"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/optimization"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the game over HTTP and WebSocket",
	Long: `Run one game session behind an HTTP API and a WebSocket endpoint.
Every connected browser sees the same cookie jar; state changes are pushed
to all clients. Actions and payouts are journaled to SQLite unless
--no-journal is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, tuning, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	appLogger := logger.NewLogger()
	appLogger.Info("Initializing Cookie Clicker server...")

	rt, err := bootstrap(cfg, tuning, appLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt.start(ctx, true)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(rt.engine, appLogger, rt.metrics, tuning)
	go hub.Run(ctx)
	hub.StartStatePusher(ctx, cfg.Server.BroadcastEvery.Duration)

	srv := api.NewServer(rt.engine, rt.eventLog, rt.engine.SessionID(), appLogger)
	srv.SetHub(hub)
	if cfg.Server.Metrics {
		srv.SetMetrics(rt.metrics)
	}
	if rt.journal != nil {
		srv.SetJournal(storage.NewReconstructor(rt.journal.Events), rt.journal.Sessions)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Infof("HTTP API & WS server listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	appLogger.Info("Server running. Press Ctrl+C to exit.")

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	appLogger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		appLogger.Errorf("HTTP shutdown failed: %v", shutdownErr)
	}
	stop()
	rt.stop()

	logTuning(appLogger, rt.metrics.Snapshot(), tuning)

	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// logTuning reports what the metrics suggest for the next run.
func logTuning(log *logger.Logger, snapshot map[string]interface{}, tuning *optimization.Config) {
	rec := optimization.Analyze(snapshot)
	if len(rec.Notes) == 0 {
		return
	}
	for _, note := range rec.Notes {
		log.Warn(note)
	}
	next := optimization.ApplyRecommendations(tuning, rec)
	log.Infof("Suggested tuning: send buffer %d, DB conns %d/%d, %d actions/s per client",
		next.ClientSendBuffer, next.DBMaxOpenConns, next.DBMaxIdleConns, next.MaxActionsPerSecond)
}
