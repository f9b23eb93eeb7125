package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/adamwoolhether/pacer/client"
	"github.com/adamwoolhether/pacer/throttle"
)

type ticker struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Seq    int32   `json:"seq"`
}

type exchange struct {
	server    *httptest.Server
	serverURL *url.URL
	hits      atomic.Int32
	failNext  atomic.Int32
}

// mockExchange serves a ticker endpoint plus a few status-code fixtures.
func mockExchange(t *testing.T) *exchange {
	t.Helper()

	ex := &exchange{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ticker", func(w http.ResponseWriter, r *http.Request) {
		seq := ex.hits.Add(1)

		if ex.failNext.Load() > 0 {
			ex.failNext.Add(-1)
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ticker{Symbol: "BTC_USDT", Last: 64000.5, Seq: seq})
	})
	mux.HandleFunc("GET /number", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":12345678901234567}`)
	})
	mux.HandleFunc("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("GET /private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /limited", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	mux.HandleFunc("GET /ua", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"ua": r.Header.Get("User-Agent")})
	})

	ex.server = httptest.NewServer(mux)
	t.Cleanup(ex.server.Close)

	u, err := url.Parse(ex.server.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	ex.serverURL = u

	return ex
}

func (ex *exchange) path(p string) *url.URL {
	cpy := *ex.serverURL
	cpy.Path = p
	return &cpy
}

// waitRecorder is a throttle.Waiter that returns immediately.
type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) wait(_ context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits = append(w.waits, d)
	return nil
}

func (w *waitRecorder) got() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration{}, w.waits...)
}

func TestClient_WithUserAgent(t *testing.T) {
	ex := mockExchange(t)
	expectedUA := "TestUserAgent/1.0"

	c, err := client.Build(client.WithUserAgent(expectedUA), client.WithThrottle(100, 10))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), ex.path("/ua"), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	var got map[string]string
	if err := c.Do(req, http.StatusOK, client.WithDestination(&got)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got["ua"] != expectedUA {
		t.Errorf("expected User-Agent %q, got %q", expectedUA, got["ua"])
	}
}

func TestClient_OptionValidation(t *testing.T) {
	testCases := []struct {
		name   string
		opt    client.Option
		expErr error
	}{
		{name: "zero rps", opt: client.WithThrottle(0, 10), expErr: throttle.ErrMustNotBeZero},
		{name: "zero burst", opt: client.WithThrottle(10, 0), expErr: throttle.ErrMustNotBeZero},
		{name: "zero interval", opt: client.WithMinInterval(0), expErr: throttle.ErrMustNotBeZero},
		{name: "skippable interval", opt: client.WithMinInterval(time.Second, throttle.WithSkippable()), expErr: throttle.ErrConfiguration},
		{name: "negative timeout", opt: client.WithTimeout(-time.Second)},
		{name: "nil client", opt: client.WithClient(nil)},
		{name: "nil transport", opt: client.WithTransport(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Build(tc.opt)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.expErr != nil && !errors.Is(err, tc.expErr) {
				t.Errorf("exp %v; got: %v", tc.expErr, err)
			}
		})
	}
}

func TestClient_WithMinInterval(t *testing.T) {
	ex := mockExchange(t)
	clock := clockwork.NewFakeClock()
	rec := &waitRecorder{}

	c, err := client.Build(
		client.WithUserAgent("interval/1.0"),
		client.WithMinInterval(time.Second, throttle.WithClock(clock), throttle.WithWaiter(rec.wait), throttle.WithEpsilon(0)),
	)
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		req, err := c.Request(t.Context(), ex.path("/ticker"), http.MethodGet)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Do(req, http.StatusOK); err != nil {
			t.Fatal(err)
		}
		clock.Advance(400 * time.Millisecond)
	}

	if ex.hits.Load() != 3 {
		t.Errorf("exp 3 upstream hits; got %d", ex.hits.Load())
	}

	exp := []time.Duration{time.Second, 600 * time.Millisecond, 600 * time.Millisecond}
	if diff := cmp.Diff(exp, rec.got()); diff != "" {
		t.Errorf("waits mismatch (-exp +got):\n%s", diff)
	}
}

func TestClient_Do(t *testing.T) {
	ex := mockExchange(t)

	c, err := client.Build(client.WithTimeout(5 * time.Second))
	if err != nil {
		t.Fatal(err)
	}

	testCases := map[string]struct {
		path      string
		method    string
		expStatus int
		payload   map[string]string
		capture   bool
		jsonNumb  bool
		check     func(t *testing.T, raw map[string]any)
		err       error
	}{
		"basicGet": {
			path:      "/ticker",
			method:    http.MethodGet,
			expStatus: http.StatusOK,
		},
		"unexpectedStatus": {
			path:      "/ticker",
			method:    http.MethodGet,
			expStatus: http.StatusAccepted,
			err:       client.ErrUnexpectedStatusCode,
		},
		"unauthorized": {
			path:      "/private",
			method:    http.MethodGet,
			expStatus: http.StatusOK,
			err:       client.ErrAuthFailure,
		},
		"rateLimited": {
			path:      "/limited",
			method:    http.MethodGet,
			expStatus: http.StatusOK,
			err:       client.ErrRateLimited,
		},
		"postEcho": {
			path:      "/echo",
			method:    http.MethodPost,
			expStatus: http.StatusOK,
			payload:   map[string]string{"body": "hey there"},
			capture:   true,
			check: func(t *testing.T, raw map[string]any) {
				t.Helper()
				if raw["body"] != "hey there" {
					t.Errorf("exp echoed body; got %v", raw)
				}
			},
		},
		"withJSONNumb": {
			path:      "/number",
			method:    http.MethodGet,
			expStatus: http.StatusOK,
			capture:   true,
			jsonNumb:  true,
			check: func(t *testing.T, raw map[string]any) {
				t.Helper()
				n, ok := raw["id"].(json.Number)
				if !ok {
					t.Fatalf("expected json.Number, got %T", raw["id"])
				}
				if n.String() != "12345678901234567" {
					t.Errorf("expected 12345678901234567, got %s", n.String())
				}
			},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var reqOpts []client.RequestOption
			if tc.payload != nil {
				reqOpts = append(reqOpts, client.WithPayload(tc.payload))
			}

			raw := map[string]any{}
			var opts []client.DoOption
			if tc.capture {
				opts = append(opts, client.WithDestination(&raw))
			}
			if tc.jsonNumb {
				opts = append(opts, client.WithJSONNumb())
			}

			req, err := c.Request(t.Context(), ex.path(tc.path), tc.method, reqOpts...)
			if err != nil {
				t.Fatalf("generating req: %v", err)
			}

			err = c.Do(req, tc.expStatus, opts...)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("exp err: %v, got: %v", tc.err, err)
				}
				if _, ok := errors.AsType[*client.UnexpectedStatusError](err); !ok {
					t.Errorf("exp *UnexpectedStatusError; got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			if tc.check != nil {
				tc.check(t, raw)
			}
		})
	}
}

func TestURL(t *testing.T) {
	testCases := map[string]struct {
		scheme, host, path string
		opts               []client.URLOption
		exp                string
	}{
		"plain": {
			scheme: "https", host: "api.example.com", path: "/v1/ticker",
			exp: "https://api.example.com/v1/ticker",
		},
		"withPortAndQuery": {
			scheme: "https", host: "api.example.com", path: "/v1/ticker",
			opts: []client.URLOption{client.WithPort(8443), client.WithQueryStrings(map[string]string{"symbol": "BTC_USDT"})},
			exp:  "https://api.example.com:8443/v1/ticker?symbol=BTC_USDT",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := client.URL(tc.scheme, tc.host, tc.path, tc.opts...).String(); got != tc.exp {
				t.Errorf("exp %q; got %q", tc.exp, got)
			}
		})
	}
}
