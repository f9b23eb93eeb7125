package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/adamwoolhether/pacer/throttle"
)

// Fetcher performs a throttled GET of a fixed URL and decodes the JSON
// response into T. All callers of one Fetcher share its timing state and,
// in skippable mode, its cached result.
type Fetcher[T any] struct {
	client   *Client
	url      *url.URL
	expCode  int
	reqOpts  []RequestOption
	doOpts   []DoOption
	throttle *throttle.Throttle[T]
}

// Stamper is implemented by results that record when they were fetched.
// Fetcher stamps a freshly decoded result with the throttle's clock before
// the throttle releases the next caller.
type Stamper interface {
	Stamp(at time.Time)
}

// FetchOption is a functional option for [NewFetcher].
type FetchOption func(*fetchOpts) error

type fetchOpts struct {
	skippable    bool
	expCode      int
	headers      map[string][]string
	useJSONNum   bool
	throttleOpts []throttle.Option
}

// WithFetchSkippable serves the cached result to calls arriving before the
// period has elapsed instead of making them wait.
func WithFetchSkippable() FetchOption {
	return func(o *fetchOpts) error {
		o.skippable = true
		return nil
	}
}

// WithExpectedStatus overrides the default expected status of 200 OK.
func WithExpectedStatus(code int) FetchOption {
	return func(o *fetchOpts) error {
		if code < 100 || code > 599 {
			return fmt.Errorf("invalid status code: %d", code)
		}
		o.expCode = code
		return nil
	}
}

// WithFetchHeaders adds headers to every request.
func WithFetchHeaders(headers map[string][]string) FetchOption {
	return func(o *fetchOpts) error {
		o.headers = headers
		return nil
	}
}

// WithFetchJSONNumber decodes numbers as [json.Number].
func WithFetchJSONNumber() FetchOption {
	return func(o *fetchOpts) error {
		o.useJSONNum = true
		return nil
	}
}

// WithFetchThrottleOptions passes options through to the underlying Throttle.
func WithFetchThrottleOptions(opts ...throttle.Option) FetchOption {
	return func(o *fetchOpts) error {
		o.throttleOpts = append(o.throttleOpts, opts...)
		return nil
	}
}

// NewFetcher builds a Fetcher of reqURL that hits the remote at most once per period.
func NewFetcher[T any](c *Client, reqURL *url.URL, period time.Duration, optFns ...FetchOption) (*Fetcher[T], error) {
	if c == nil {
		return nil, errors.New("client must not be nil")
	}
	if reqURL == nil {
		return nil, errors.New("url must not be nil")
	}

	opts := fetchOpts{expCode: http.StatusOK}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying fetch option: %w", err)
		}
	}

	thOpts := slices.Clone(opts.throttleOpts)
	if opts.skippable {
		thOpts = append(thOpts, throttle.WithSkippable())
	}
	base := []throttle.Option{throttle.WithLogger(c.logger)}
	if name := reqURL.Redacted(); name != "" {
		base = append(base, throttle.WithName(name))
	}
	thOpts = append(base, thOpts...)

	th, err := throttle.New[T](period, thOpts...)
	if err != nil {
		return nil, fmt.Errorf("configuring fetch throttle: %w", err)
	}

	f := Fetcher[T]{
		client:   c,
		url:      reqURL,
		expCode:  opts.expCode,
		throttle: th,
	}
	if opts.headers != nil {
		f.reqOpts = append(f.reqOpts, WithHeaders(opts.headers))
	}
	if opts.useJSONNum {
		f.doOpts = append(f.doOpts, WithJSONNumb())
	}

	return &f, nil
}

// Fetch returns the decoded response, waiting or serving the cached value
// as the throttle decides.
func (f *Fetcher[T]) Fetch(ctx context.Context) (T, error) {
	return f.throttle.Do(ctx, f.fetch)
}

// Throttle exposes the underlying Throttle, e.g. to read [throttle.Throttle.LastCall].
func (f *Fetcher[T]) Throttle() *throttle.Throttle[T] {
	return f.throttle
}

func (f *Fetcher[T]) fetch(ctx context.Context) (T, error) {
	var dest T

	req, err := Request(ctx, f.url, http.MethodGet, f.reqOpts...)
	if err != nil {
		return dest, fmt.Errorf("building request: %w", err)
	}

	doOpts := append([]DoOption{WithDestination(&dest)}, f.doOpts...)
	if err := f.client.Do(req, f.expCode, doOpts...); err != nil {
		return dest, err
	}

	if s, ok := any(&dest).(Stamper); ok {
		s.Stamp(f.throttle.Now())
	}

	return dest, nil
}
