package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/pacer/web/mux"
)

// Logger writes a line when a request starts and when it completes.
func Logger(log *slog.Logger) mux.Ranked {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := mux.GetValues(ctx)

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}

			reqLog := log.With("trace_id", v.TraceID, "method", r.Method, "path", path, "remoteaddr", r.RemoteAddr)
			reqLog.Info("request started")

			err := handler(ctx, w, r)

			reqLog.Info("request completed", "statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}

		return h
	}

	return mux.Ranked{Order: mux.RankLogger, Fn: m}
}
