// Package server runs an HTTP handler until a context ends, then drains
// in-flight requests and runs registered cleanup.
//
// Signal handling belongs to the caller:
//
//	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	srv := server.New(app,
//		server.WithHost(":3000"),
//		server.WithShutdownFunc(meterProvider.Shutdown),
//	)
//	if err := srv.Run(ctx); err != nil {
//		return err
//	}
package server
