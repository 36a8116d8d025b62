package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"promo-engine/internal/admission"
	"promo-engine/internal/api"
	"promo-engine/internal/config"
	"promo-engine/internal/listener"
	"promo-engine/internal/storage"
)

// Run wires storage, the admission controller, the storefront snapshot and
// the HTTP surface, then blocks until SIGINT/SIGTERM.
func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("resolve timezone")
	}

	store, err := storage.New(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	ctrl := admission.New(store, admission.Options{
		PriorityCap: cfg.Engine.PriorityCap,
		ActiveCap:   cfg.Engine.ActiveCap,
		Location:    loc,
	})

	// Warm the storefront snapshot; a failure here is tolerable, the
	// handler falls back to the store until the first refresh lands.
	cache := storage.NewCache()
	if err := listener.Refresh(rootCtx, store, cache); err != nil {
		log.Warn().Err(err).Msg("initial snapshot load failed")
	}

	h := api.NewPromotionHandler(ctrl, store, cache)
	r := api.Router(h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// LISTEN/NOTIFY keeps the snapshot fresh; the ticker is a backstop
	// for missed notifications.
	go listener.ListenAndRefresh(rootCtx, store, cache, cfg.Listener.Channel, cfg.Backoff())
	go refreshLoop(rootCtx, store, cache, cfg.RefreshInterval())

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Int("priority_cap", cfg.Engine.PriorityCap).
			Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutdown...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func refreshLoop(ctx context.Context, store *storage.Store, cache *storage.Cache, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := listener.Refresh(ctx, store, cache); err != nil {
				log.Error().Err(err).Msg("periodic snapshot refresh failed")
			}
		}
	}
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
