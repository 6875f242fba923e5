package main

import (
	"btc-data/internal/app"
	"btc-data/internal/ingest"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *app.Config
	Runner *ingest.Runner
}
