package server

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	host            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	shutdownFuncs   []shutdownFunc
}

type shutdownFunc func(ctx context.Context) error

// WithHost sets the address the server listens on. Default is ":8080".
func WithHost(host string) Option {
	return func(opts *options) {
		if host != "" {
			opts.host = host
		}
	}
}

// WithTimeouts sets the read, write and idle timeouts of the underlying
// [http.Server]. Zero values keep the defaults of 5s, 10s and 120s.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(opts *options) {
		if read > 0 {
			opts.readTimeout = read
		}
		if write > 0 {
			opts.writeTimeout = write
		}
		if idle > 0 {
			opts.idleTimeout = idle
		}
	}
}

// WithShutdownTimeout bounds how long [Server.Run] waits for in-flight
// requests after its context ends. Default is 20s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger used for server lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		if log != nil {
			opts.logger = log
		}
	}
}

// WithShutdownFunc registers a function to call during graceful shutdown,
// before the HTTP server is stopped. Functions run in registration order.
func WithShutdownFunc(fn func(ctx context.Context) error) Option {
	return func(opts *options) {
		opts.shutdownFuncs = append(opts.shutdownFuncs, fn)
	}
}
