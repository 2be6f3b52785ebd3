package advisory

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/weather-fortune/pkg/errors"
)

// Service produces weather fortunes for a location and health profile.
type Service interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// WeatherProvider resolves a free-text location to current conditions.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (WeatherReading, error)
}

// Recorder receives one event per generated advisory.
type Recorder interface {
	IncAdvisory(source string)
}

type service struct {
	provider WeatherProvider
	recorder Recorder
	logger   *slog.Logger
}

// NewService wires up the advisory domain.
func NewService(provider WeatherProvider, recorder Recorder, logger *slog.Logger) Service {
	return &service{
		provider: provider,
		recorder: recorder,
		logger:   logger.With("component", "advisory.service"),
	}
}

func (s *service) Generate(ctx context.Context, req Request) (Response, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return Response{}, apperrors.Wrap("invalid_input", "location cannot be empty", nil)
	}
	s.logger.Debug("advisory requested",
		"location", location,
		"from_date", req.FromDate,
		"to_date", req.ToDate,
		"exercises", req.Exercises,
		"health_conditions", req.HealthConditions,
	)

	weather, err := s.provider.Current(ctx, location)
	if err != nil {
		return Response{}, err
	}

	profile := HealthProfile{
		Conditions:         ParseConditions(req.HealthConditions),
		ExercisesRegularly: req.Exercises,
	}
	advice, source := evaluate(weather, profile)
	if s.recorder != nil {
		s.recorder.IncAdvisory(string(source))
	}
	s.logger.Info("advisory generated",
		"location", weather.ResolvedName,
		"temp_c", weather.TempC,
		"aqi", weather.AQI,
		"likelihood_source", source,
		"cautions", len(advice.Cautions),
	)

	return Response{
		Location: weather.ResolvedName,
		Weather:  weather,
		Advice:   advice,
	}, nil
}
