// Package main is the entry point for updstress, a stress tester for update
// channels.
package main

import (
	"log/slog"
	"os"

	"github.com/creachadair/update/cmd/updstress/app"
)

func main() {
	// Log to stderr to keep stdout clean for the report.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: app.LogLevel()})
	slog.SetDefault(slog.New(handler))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
