// Command sessionctl inspects session snapshots persisted in SQLite.
//
// Usage:
//
//	sessionctl [-db path] [-json] list [session]
//	sessionctl [-db path] [-json] dump <session> <model>
//	sessionctl [-db path] keys <session> <model>
//	sessionctl decode-key <key>...
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], environ(), os.Stdout, os.Stderr))
}

func environ() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			out[key] = value
		}
	}
	return out
}
