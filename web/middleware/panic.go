package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/adamwoolhether/pacer/web/mux"
)

// Panics recovers a panicking handler and returns the panic as an error,
// so that Errors can answer with a 500.
func Panics() mux.Ranked {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, debug.Stack())
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return mux.Ranked{Order: mux.RankPanics, Fn: m}
}
