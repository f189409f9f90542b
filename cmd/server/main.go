package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"foxhollow.gg/internal/auth"
	"foxhollow.gg/internal/config"
	"foxhollow.gg/internal/journal"
	"foxhollow.gg/internal/logging"
	"foxhollow.gg/internal/store"
	"foxhollow.gg/internal/transport/httpapi"
	"foxhollow.gg/internal/transport/ws"
	"foxhollow.gg/internal/world"
)

func main() {
	envCfg, err := config.ParseEnv()
	if err != nil {
		panic(err)
	}

	var (
		addr       = flag.String("addr", envCfg.Addr, "http listen address")
		dataDir    = flag.String("data", envCfg.DataDir, "runtime data directory")
		staticDir  = flag.String("static", envCfg.StaticDir, "static assets directory")
		tuningPath = flag.String("tuning", envCfg.TuningPath, "path to tuning.yaml (optional)")
		logFile    = flag.String("log", envCfg.LogFile, "log file path (empty for stdout only)")
		seed       = flag.Int64("seed", envCfg.Seed, "world rng seed (0: derive from clock)")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	logger, err := logging.New(*logFile, *debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	tune := config.Defaults()
	if strings.TrimSpace(*tuningPath) != "" {
		tune, err = config.Load(*tuningPath)
		if err != nil {
			logger.Fatalw("load tuning", "path", *tuningPath, "err", err)
		}
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	st, err := store.Open(filepath.Join(*dataDir, "foxhollow.db"))
	if err != nil {
		logger.Fatalw("open store", "err", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := ensureTrees(ctx, st, tune, *seed, logger); err != nil {
		logger.Fatalw("seed world trees", "err", err)
	}
	trees, err := st.Trees(ctx)
	if err != nil {
		logger.Fatalw("load trees", "err", err)
	}
	objects, err := st.PlacedObjects(ctx)
	if err != nil {
		logger.Fatalw("load placed objects", "err", err)
	}
	if purged, err := st.PurgeExpiredSessions(ctx, time.Now()); err != nil {
		logger.Warnw("purge sessions", "err", err)
	} else if purged > 0 {
		logger.Infow("purged expired sessions", "count", purged)
	}

	rec := journal.NewRecorder(filepath.Join(*dataDir, "journal"))
	defer rec.Close()

	gate := auth.NewGate(st)
	w := world.New(world.ConfigFromTuning(tune, *seed), st, gate, trees, objects, logger)
	w.SetJournal(rec)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := w.Run(runCtx); err != nil && err != context.Canceled {
			logger.Errorw("world loop exited", "err", err)
		}
	}()

	api := httpapi.NewServer(st, gate, w, httpapi.Options{
		SessionTTL:     time.Duration(tune.SessionTTLDays) * 24 * time.Hour,
		LeaderboardTop: tune.LeaderboardTop,
		ObjectCosts:    tune.ObjectCosts,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.NewServer(w, logger).Handler())
	api.Register(mux)
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/", http.FileServer(http.Dir(*staticDir)))

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Infow("listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("listen", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	w.Stop()
}
