// Package main is the LifeQuest background worker.
//
// The worker owns the progression engine's scheduled work:
//   - charging deadline penalties on overdue tasks
//   - rebuilding the Redis leaderboard from the profile store
//
// It also keeps the cache projections in sync with committed events and
// serves health probes plus a small job console over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}
