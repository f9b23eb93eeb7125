// Package client provides the configurable HTTP client built on [net/http]
// whose transport can be throttled.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithMinInterval(time.Second / 6),
//	)
//
// [WithThrottle] limits requests with a token bucket; [WithMinInterval]
// guarantees a minimum gap between request starts. Both wait rather than fail
// and give up when the request context ends.
//
// # Making Requests
//
// Construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.example.com", "/v1/resource")
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// # Fetching
//
// A [Fetcher] polls one endpoint under its own throttle. In skippable mode,
// callers arriving inside the period get the last decoded value without
// touching the network:
//
//	f, err := client.NewFetcher[Ticker](c, u, 2*time.Second, client.WithFetchSkippable())
//	ticker, err := f.Fetch(ctx)
package client
