package controllers

import (
	"context"
	"net/http"

	"github.com/entradago/entradago-backend/api/responses"
	"github.com/entradago/entradago-backend/pkg/config"
	pkgerrors "github.com/entradago/entradago-backend/pkg/errors"
	"github.com/entradago/entradago-backend/pkg/logger"
)

const envHeader = "X-Entradago-Env"

// Pinger is the readiness probe surface of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings whichever backing stores are wired. A nil pinger means
// the deployment does not use that store and is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]Pinger{
			"db":    dbP,
			"redis": redisP,
		}
		for name, pinger := range checks {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "dependency", name)
					logg.Error(ctx, "readiness check failed", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
