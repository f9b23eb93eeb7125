package throttle_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/pacer/throttle"
)

func ExampleNew() {
	t, err := throttle.New[string](50*time.Millisecond, throttle.WithSkippable())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return fmt.Sprintf("ticker #%d", calls), nil
	}

	first, _ := t.Do(context.Background(), fetch)
	second, _ := t.Do(context.Background(), fetch) // Inside the period: served from cache.

	fmt.Println(first, second)
	// Output: ticker #1 ticker #1
}

func ExampleDecide() {
	t0 := time.Unix(0, 0)
	check := throttle.PeriodCheck{Last: t0, Now: t0.Add(3 * time.Second), Period: 5 * time.Second}

	fmt.Println(throttle.Decide(check, time.Second, false, true))
	fmt.Println(throttle.Decide(check, time.Second, true, true).Action)
	// Output:
	// {wait 3s false}
	// cached
}

func ExampleWrap() {
	ping := func() (int, error) { return 200, nil }

	throttled, err := throttle.Wrap(ping, time.Millisecond)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	status, _ := throttled()
	fmt.Println(status)
	// Output: 200
}

func ExampleNewIntervalRoundTripper() {
	rt, err := throttle.NewIntervalRoundTripper(
		time.Second/6, // at most six requests per second
		func() *slog.Logger { return slog.Default() },
		http.DefaultTransport,
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = &http.Client{Transport: rt}

	fmt.Println("interval transport created")
	// Output: interval transport created
}
