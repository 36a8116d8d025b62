package listener

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"promo-engine/internal/storage"
)

// ListenAndRefresh keeps the storefront snapshot current: it LISTENs on the
// promotions change channel and reloads the full rule-set collection on
// every notification. Admin writes land in the snapshot within one
// round-trip instead of waiting for the periodic refresh.
func ListenAndRefresh(ctx context.Context, st *storage.Store, cache *storage.Cache, channel string, baseBackoff time.Duration) {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("acquire conn for listen")
		return
	}
	defer conn.Release()

	if channel == "" {
		channel = st.ListenChannel()
	}
	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("listen")
		return
	}
	log.Info().Str("channel", channel).Msg("listening for promotion changes")

	var lastRefresh time.Time
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		default:
			ntf, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				backoff := jitter(baseBackoff)
				log.Error().Err(err).Dur("retry_in", backoff).Msg("notify wait error")
				time.Sleep(backoff)
				continue
			}
			if time.Since(lastRefresh) < 200*time.Millisecond {
				continue // debounce burst of notifications
			}
			lastRefresh = time.Now()
			log.Info().Str("channel", ntf.Channel).Msg("promotion change; refreshing snapshot")
			if err := Refresh(ctx, st, cache); err != nil {
				log.Error().Err(err).Msg("refresh snapshot error")
			}
		}
	}
}

// Refresh reloads every promotion row into the snapshot.
func Refresh(ctx context.Context, st *storage.Store, cache *storage.Cache) error {
	promos, err := st.LoadAll(ctx)
	if err != nil {
		return err
	}
	cache.Update(promos)
	return nil
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x–1.5x
	return time.Duration(float64(base) * factor)
}
