//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/weather-fortune/internal/bootstrap"
	"github.com/yanqian/weather-fortune/internal/domain/advisory"
	"github.com/yanqian/weather-fortune/internal/domain/auth"
	"github.com/yanqian/weather-fortune/internal/infra/config"
	"github.com/yanqian/weather-fortune/internal/infra/openweather"
	httpiface "github.com/yanqian/weather-fortune/internal/interface/http"
	"github.com/yanqian/weather-fortune/pkg/logger"
	"github.com/yanqian/weather-fortune/pkg/metrics"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.New,
		provideOpenWeatherConfig,
		provideGeocodeCache,
		provideOpenWeatherClient,
		provideAuthConfig,
		provideAuthRepository,
		provideSessionStore,
		provideJanitor,
		advisory.NewService,
		auth.NewService,
		wire.Bind(new(advisory.WeatherProvider), new(*openweather.Client)),
		wire.Bind(new(advisory.Recorder), new(*metrics.Recorder)),
		httpiface.NewHandler,
		httpiface.NewAuthHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
