// Package main provides the styletakeout CLI for extracting CSS-in-JS into a static stylesheet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nettybun/styletakeout"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		colors := styletakeout.NewReporter(os.Stderr, reporterConfig()).UseColors()
		fmt.Fprintln(os.Stderr, styletakeout.RenderStyle(styletakeout.StyleRed, "Error:", colors), err)
		os.Exit(1)
	}
}
