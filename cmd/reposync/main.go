// Command reposync commits, pulls and pushes a set of git working copies,
// optionally publishing local changes to a side-channel branch, and applies
// side-channel commits back into a working branch.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
