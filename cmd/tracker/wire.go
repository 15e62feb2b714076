//go:build wireinject

package main

import (
	"context"
	"io"

	"github.com/google/wire"

	"github.com/cory-johannsen/combat-tracker/internal/config"
)

func initializeApp(ctx context.Context, cfg *config.Config, seed Seed, out io.Writer) (*App, func(), error) {
	wire.Build(providerSet)
	return nil, nil, nil
}
