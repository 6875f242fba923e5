//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"btc-data/internal/app"
	"btc-data/internal/ingest"

	"github.com/google/wire"
)

// InitializeApp builds App (Config + Runner) via Wire.
// Caller must call cleanup when done; it closes the sink clients.
func InitializeApp(ctx context.Context) (*App, func(), error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideModel,
		app.ProvideGenerator,
		app.ProvidePayloadCodec,
		app.ProvideSerializer,
		app.ProvideRowCodec,
		app.ProvideStore,
		app.ProvidePublisher,
		app.ProvideOptions,
		ingest.NewRunner,
		wire.Struct(new(App), "Config", "Runner"),
	)
	return nil, nil, nil
}
