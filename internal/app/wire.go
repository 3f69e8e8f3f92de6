//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/greenpack/storefront/internal/infra/config"
)

// InitializeApp creates the application using Wire.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		AppSet,
		wire.Struct(new(App), "Config", "Logger", "Metrics", "Checkout"),
	)
	return nil, nil, nil
}
