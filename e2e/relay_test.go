//go:build integration

package e2e_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adamwoolhether/pacer/client"
	"github.com/adamwoolhether/pacer/relay"
	"github.com/adamwoolhether/pacer/web/middleware"
	"github.com/adamwoolhether/pacer/web/mux"
	"github.com/adamwoolhether/pacer/web/server"
)

type ticker struct {
	Symbol string `json:"symbol"`
	Seq    int32  `json:"seq"`
}

// startStack runs upstream -> relay -> server on loopback and returns the
// relay's base URL plus the upstream hit counter.
func startStack(t *testing.T, routes ...relay.Route) (*url.URL, *atomic.Int32) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			http.Error(w, "maintenance", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ticker{Symbol: "BTC_USDT", Seq: hits.Add(1)})
	}))
	t.Cleanup(upstream.Close)

	for i := range routes {
		routes[i].Upstream = upstream.URL + routes[i].Path
	}

	c, err := client.Build(client.WithLogger(log))
	if err != nil {
		t.Fatalf("building upstream client: %v", err)
	}

	r, err := relay.New(c, relay.Config{Routes: routes}, relay.WithLogger(log))
	if err != nil {
		t.Fatalf("relay.New: %v", err)
	}

	app := mux.New(mux.WithLogger(log), mux.WithMiddleware(
		middleware.Logger(log),
		middleware.Errors(log),
		middleware.Panics(),
	))
	r.Register(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.New(app, server.WithLogger(log)).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("server: %v", err)
		}
	})

	base, _ := url.Parse("http://" + ln.Addr().String())

	return base, &hits
}

func TestRelay_SkippableFanIn(t *testing.T) {
	base, hits := startStack(t, relay.Route{Name: "ticker", Path: "/ticker", Period: time.Second, Skippable: true})

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	fetch := func(ctx context.Context) (ticker, error) {
		var tk ticker
		req, err := client.Request(ctx, base.JoinPath("/ticker"), http.MethodGet)
		if err != nil {
			return tk, err
		}
		return tk, c.Do(req, http.StatusOK, client.WithDestination(&tk))
	}

	// The first request waits out the period to seed the relay's cache.
	seed, err := fetch(t.Context())
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}

	var stale atomic.Int32
	g, ctx := errgroup.WithContext(t.Context())
	for range 10 {
		g.Go(func() error {
			tk, err := fetch(ctx)
			if err != nil {
				return err
			}
			if tk.Seq == seed.Seq {
				stale.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("fan-in: %v", err)
	}

	if got := stale.Load(); got != 10 {
		t.Fatalf("cached answers = %d, want 10", got)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream hits = %d, want 1", got)
	}
}

func TestRelay_NonSkippableSpacing(t *testing.T) {
	const period = 50 * time.Millisecond

	base, hits := startStack(t, relay.Route{Name: "trades", Path: "/trades", Period: period})

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	var last int32
	for i := range 4 {
		var tk ticker
		req, err := client.Request(t.Context(), base.JoinPath("/trades"), http.MethodGet)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Do(req, http.StatusOK, client.WithDestination(&tk)); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if tk.Seq <= last {
			t.Fatalf("call %d seq = %d, want fresh data after %d", i, tk.Seq, last)
		}
		last = tk.Seq
	}

	if elapsed := time.Since(start); elapsed < 3*period {
		t.Fatalf("4 calls took %v, want at least %v", elapsed, 3*period)
	}
	if got := hits.Load(); got != 4 {
		t.Fatalf("upstream hits = %d, want 4", got)
	}
}

func TestRelay_UpstreamFailure(t *testing.T) {
	base, _ := startStack(t, relay.Route{Name: "down", Path: "/down", Period: 10 * time.Millisecond, Skippable: true})

	c, err := client.Build()
	if err != nil {
		t.Fatal(err)
	}

	req, err := client.Request(t.Context(), base.JoinPath("/down"), http.MethodGet)
	if err != nil {
		t.Fatal(err)
	}

	err = c.Do(req, http.StatusOK)

	statusErr, ok := errors.AsType[*client.UnexpectedStatusError](err)
	if !ok {
		t.Fatalf("err = %v, want UnexpectedStatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", statusErr.StatusCode, http.StatusBadGateway)
	}
}
