package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/analysis"
	"github.com/gusuihan4-tech/kaluli/internal/cloudsync"
	"github.com/gusuihan4-tech/kaluli/internal/config"
	"github.com/gusuihan4-tech/kaluli/internal/imageprep"
	"github.com/gusuihan4-tech/kaluli/internal/logger"
	"github.com/gusuihan4-tech/kaluli/internal/queue"
	"github.com/gusuihan4-tech/kaluli/internal/store"
	"github.com/gusuihan4-tech/kaluli/internal/tracker"
)

// app bundles the wired client-side pipeline for CLI commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *store.Store
	queue   queue.Manager
	cloud   *cloudsync.Client
	sync    *cloudsync.Reconciler
	tracker *tracker.Tracker
}

// openApp loads config, opens the local store, and wires the pipeline.
// If a cloud session token survives from a previous run it is validated
// against the auth service and relinked.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	st, err := store.Open(store.Options{Dir: cfg.DataDir, Logger: logger.Named(log, "store")})
	if err != nil {
		return nil, err
	}

	client := analysis.NewClient(cfg.AnalyzeEndpoint, cfg.RequestTimeout, logger.Named(log, "analysis"))
	q := queue.New(st, client, logger.Named(log, "queue"))
	cloud := cloudsync.NewClient(cfg.SyncURL, cfg.SyncAnonKey, logger.Named(log, "cloud"))
	rec := cloudsync.NewReconciler(cloud, st, logger.Named(log, "sync"))
	prep := imageprep.New(cfg.MaxImageWidth, cfg.JPEGQuality)
	tr := tracker.New(st, prep, client, q, rec, logger.Named(log, "tracker"))

	a := &app{cfg: cfg, log: log, store: st, queue: q, cloud: cloud, sync: rec, tracker: tr}
	a.restoreSession(ctx)
	return a, nil
}

func (a *app) restoreSession(ctx context.Context) {
	if !a.cloud.Enabled() {
		return
	}
	token, err := a.store.SessionToken()
	if err != nil || token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sess, err := a.cloud.GetSession(ctx, token)
	if err != nil {
		a.log.Warn("stored cloud session no longer valid", zap.Error(err))
		_ = a.store.ClearSessionToken()
		return
	}
	a.tracker.SetSession(sess)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}
