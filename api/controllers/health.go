package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/bidhaus/backend/api/responses"
	"github.com/bidhaus/backend/pkg/config"
	"github.com/bidhaus/backend/pkg/db"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
	"github.com/bidhaus/backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BidHaus-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing stores before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BidHaus-Env", cfg.App.Env)

		checks := map[string]string{}
		var pingErr error

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["db"] = "down"
				pingErr = multierr.Append(pingErr, err)
			} else {
				checks["db"] = "up"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = "down"
				pingErr = multierr.Append(pingErr, err)
			} else {
				checks["redis"] = "up"
			}
		}

		if pingErr != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
