package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	applicationName = "exstem-practice"
	pingTimeout     = 5 * time.Second
	connectAttempts = 5
)

// waitReady pings until the backend answers. Databases started alongside the
// service in compose are often a few seconds behind it.
func waitReady(ctx context.Context, name string, attempts int, backoff time.Duration, ping func(context.Context) error, log zerolog.Logger) error {
	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn().Err(err).Str("backend", name).Int("attempt", i).Msg("Not ready, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
}
