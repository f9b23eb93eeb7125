package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/adamwoolhether/pacer/web"
	"github.com/adamwoolhether/pacer/web/errs"
	"github.com/adamwoolhether/pacer/web/mux"
)

// Errors turns errors coming out of the call chain into JSON responses.
// Anything that is not an *errs.Error is reported as an opaque 500.
func Errors(log *slog.Logger) mux.Ranked {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			appErr, ok := errors.AsType[*errs.Error](err)
			if !ok {
				appErr = errs.NewInternal(err)
			}

			log.Error(err.Error(),
				"trace_id", mux.GetTraceID(ctx),
				"status", appErr.Code,
				"source_err_file", path.Base(appErr.FileName),
				"source_err_func", path.Base(appErr.FuncName),
			)

			if appErr.IsInternal() {
				appErr.Message = http.StatusText(appErr.Code)
			}

			return web.RespondError(ctx, w, appErr)
		}

		return h
	}

	return mux.Ranked{Order: mux.RankErrors, Fn: m}
}
