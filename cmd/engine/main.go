package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/events"
	"talentscout-engine/internal/fetchcache"
	"talentscout-engine/internal/httpapi"
	"talentscout-engine/internal/logger"
	"talentscout-engine/internal/normalize"
	"talentscout-engine/internal/outreach"
	"talentscout-engine/internal/rank"
	"talentscout-engine/internal/scheduler"
	"talentscout-engine/internal/secrets"
	"talentscout-engine/internal/source"
	"talentscout-engine/internal/store"
)

func main() {
	var (
		jsonLog = flag.Bool("log-json", false, "log in JSON")
		debug   = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	log, err := logger.New(*jsonLog, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("engine exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	dataDir := os.Getenv("TALENTSCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}

	// config stays reloadable through the API
	var cfgVal atomic.Value
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		// rubric data tables ship separately so they can be versioned
		// without touching the main config
		if err := config.OverlayTables(&cfg, filepath.Join(dataDir, "tables.yml")); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(dataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hub := events.NewHub()
	cache := fetchcache.New(time.Duration(cfg.Cache.FreshnessSeconds)*time.Second, cfg.Cache.MaxEntries)

	limiter := source.NewLimiter(cfg)
	registry := source.NewRegistry(cfg, limiter, secrets.Token)

	priors := map[domain.Source]float64{
		domain.SourceLinkedIn:     cfg.Sources.LinkedIn.Prior,
		domain.SourceGitHub:       cfg.Sources.GitHub.Prior,
		domain.SourceTwitter:      cfg.Sources.Twitter.Prior,
		domain.SourcePersonalSite: cfg.Sources.PersonalSite.Prior,
	}
	norm := normalize.New(priors, normalize.NewCompanyIndex(cfg.Scoring.Tables.CompanyTiers))
	scorer := rank.NewRubricScorer(cfg.Scoring.Weights, cfg.Scoring.Tables)

	gen := buildOutreach(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(cfg, log, registry, cache, norm, scorer, gen, db, hub)
	sched.Start(ctx)

	// retention sweep for finished runs
	go func() {
		t := time.NewTicker(6 * time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n, err := db.CleanupOldJobs(ctx, 90*24*time.Hour); err != nil {
					log.Warn("cleanup", zap.Error(err))
				} else if n > 0 {
					log.Info("cleanup", zap.Int64("jobs_removed", n))
				}
			}
		}
	}()

	mux := httpapi.NewMux(httpapi.Deps{
		Scheduler:   sched,
		Store:       db,
		Hub:         hub,
		Cache:       cache,
		Log:         log,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	token, err := randomToken(16)
	if err != nil {
		return err
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, stop))
	log.Debug("shutdown token issued", zap.String("token", token))

	handler := httpapi.Chain(mux,
		httpapi.Recover(log),
		httpapi.RequestID,
		httpapi.AccessLog(log),
		httpapi.Cors,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info("engine listening", zap.String("addr", "http://"+addr), zap.String("data_dir", dataDir))

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildOutreach wires the Gemini generator when a key is available and
// falls back to templated messages otherwise.
func buildOutreach(cfg config.Config, log *zap.Logger) scheduler.OutreachGenerator {
	if !cfg.Outreach.Enabled {
		return nil
	}
	key, err := secrets.GeminiAPIKey()
	if err != nil {
		log.Warn("gemini key lookup failed, using templated outreach", zap.Error(err))
		return outreach.NewTemplated(log)
	}
	if key == "" {
		log.Info("no gemini key configured, using templated outreach")
		return outreach.NewTemplated(log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gen, err := outreach.NewGemini(ctx, key, cfg.Outreach.Model, log)
	if err != nil {
		log.Warn("gemini init failed, using templated outreach", zap.Error(err))
		return outreach.NewTemplated(log)
	}
	return gen
}
