// Command relayd serves upstream JSON endpoints through per-route
// throttles. See "relayd --help".
package main

import (
	"context"
	"fmt"
	"os"
)

// Set via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "relayd:", err)
		os.Exit(1)
	}
}
