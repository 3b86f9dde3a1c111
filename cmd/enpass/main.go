package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/TheMichaelB/enpass/internal/platform"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	a.coreDumpErr = platform.DisableCoreDumps()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], a)
	stop()

	os.Exit(code)
}
