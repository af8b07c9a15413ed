package cli

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
	"github.com/MRamiBalles/CookieClicker/internal/platform/config"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
	"github.com/MRamiBalles/CookieClicker/internal/platform/optimization"
)

// loadConfig reads the config file and applies the persistent flag
// overrides shared by every command.
func loadConfig(cmd *cobra.Command) (config.AppConfig, *optimization.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.AppConfig{}, nil, err
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Storage.Path = db
	}
	if off, _ := cmd.Flags().GetBool("no-journal"); off {
		cfg.Storage.Enabled = false
	}
	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		cfg.Tuning.Profile = profile
	}

	tuning, err := optimization.ByName(cfg.Tuning.Profile)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return cfg, tuning, nil
}

// openJournal opens the SQLite journal sized by the tuning profile.
func openJournal(path string, tuning *optimization.Config) (*sql.DB, *storage.Journal, error) {
	db, err := storage.InitSQLite(path, storage.PoolConfig{
		MaxOpenConns: tuning.DBMaxOpenConns,
		MaxIdleConns: tuning.DBMaxIdleConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewJournal(db), nil
}

// meteredPersister counts journal writes on the collector.
type meteredPersister struct {
	next    events.EventPersister
	metrics *metrics.Collector
}

func (p meteredPersister) AppendBatch(ctx context.Context, batch []events.GameEvent) error {
	if err := p.next.AppendBatch(ctx, batch); err != nil {
		p.metrics.RecordEventWrite(err)
		return err
	}
	for range batch {
		p.metrics.RecordEventWrite(nil)
	}
	return nil
}

// runtime is one game session with its journal and background loops.
type runtime struct {
	cfg      config.AppConfig
	tuning   *optimization.Config
	log      *logger.Logger
	metrics  *metrics.Collector
	db       *sql.DB
	journal  *storage.Journal
	eventLog *events.EventLog
	engine   *engine.Engine
	ticker   *engine.Ticker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// bootstrap builds the engine stack. Nothing runs until start.
func bootstrap(cfg config.AppConfig, tuning *optimization.Config, log *logger.Logger) (*runtime, error) {
	game, err := cfg.ToProgression()
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		tuning:  tuning,
		log:     log,
		metrics: metrics.NewCollector(),
	}

	var persister events.EventPersister
	if cfg.Storage.Enabled {
		log.Infof("Initializing SQLite journal '%s'...", cfg.Storage.Path)
		rt.db, rt.journal, err = openJournal(cfg.Storage.Path, tuning)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
		persister = meteredPersister{next: rt.journal, metrics: rt.metrics}
	}

	log.Info("Bootstrapping EventLog...")
	rt.eventLog = events.NewEventLog(persister, tuning.EventLogRetention)

	log.Info("Bootstrapping Engine...")
	rt.engine, err = engine.NewEngine(game, rt.eventLog, log, rt.metrics)
	if err != nil {
		rt.closeDB()
		return nil, err
	}
	rt.ticker = engine.NewTicker(rt.engine, nil, log, cfg.FrameInterval())
	return rt, nil
}

// start opens the session and launches the journal flusher. When
// autoTick is set the ticker drives the engine from its own goroutine;
// otherwise the caller steps it.
func (rt *runtime) start(ctx context.Context, autoTick bool) {
	ctx, rt.cancel = context.WithCancel(ctx)
	rt.engine.StartSession()

	if rt.journal != nil {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			rt.eventLog.PersistLoop(ctx, rt.cfg.Storage.FlushEvery.Duration, func(err error) {
				rt.log.Errorf("Journal flush failed: %v", err)
			})
		}()
	}
	if autoTick {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			rt.ticker.Start(ctx)
		}()
	}
}

// stop ends the session, waits for the loops and performs the final
// journal flush.
func (rt *runtime) stop() {
	rt.ticker.Stop()
	rt.engine.EndSession()
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.wg.Wait()
	rt.closeDB()
}

func (rt *runtime) closeDB() {
	if rt.db == nil {
		return
	}
	if err := rt.db.Close(); err != nil {
		rt.log.Errorf("Failed to close journal: %v", err)
	}
	rt.db = nil
}
