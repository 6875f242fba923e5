package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"btc-data/internal/app"
	"btc-data/internal/ingest"
	"btc-data/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	os.Exit(run())
}

func run() int {
	event := flag.String("event", "", `invocation payload, e.g. {"mode":"incremental","interval":"1d"}`)
	mode := flag.String("mode", "", "full | incremental (overrides -event)")
	interval := flag.String("interval", "", "1d | 4h | 1w, required for incremental")
	wipe := flag.String("wipe-prefix", "", "delete every object under this prefix before writing")
	serve := flag.Bool("serve", false, "run the incremental schedule until SIGINT/SIGTERM")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := InitializeApp(ctx)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer cleanup()

	if *serve {
		slog.Info("serving schedule", "symbol", a.Config.Symbol, "currency", a.Config.Currency)
		if err := app.NewScheduler(a.Runner, app.DefaultSchedules()).Run(ctx); err != nil {
			slog.Error("scheduler failed", "error", err)
			return 1
		}
		return 0
	}

	req, err := buildRequest(*event, *mode, *interval, *wipe)
	if err != nil {
		slog.Error("bad request", "error", err)
		return 2
	}
	resp, runErr := a.Runner.Handle(ctx, req)
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		slog.Error("encode response", "error", err)
		return 1
	}
	fmt.Println(string(out))
	if runErr != nil {
		return 1
	}
	return 0
}

// buildRequest decodes the optional JSON event and lets explicit flags override it.
func buildRequest(event, mode, interval, wipe string) (ingest.Request, error) {
	var req ingest.Request
	if event != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(event)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode -event: %w", err)
		}
	}
	if mode != "" {
		req.Mode = ingest.Mode(mode)
	}
	if interval != "" {
		req.Interval = interval
	}
	if wipe != "" {
		req.WipePrefix = wipe
	}
	return req, nil
}
