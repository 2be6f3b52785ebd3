package advisory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAQILabel(t *testing.T) {
	cases := map[int]string{
		1:  "Good",
		2:  "Fair",
		3:  "Moderate",
		4:  "Poor",
		5:  "Very Poor",
		0:  "Unknown",
		6:  "Unknown",
		-1: "Unknown",
	}
	for aqi, want := range cases {
		require.Equal(t, want, AQILabel(aqi), "aqi=%d", aqi)
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name       string
		tempC      int
		aqi        int
		conds      Conditions
		exercises  bool
		likelihood string
		cautions   []string
	}{
		{
			name:       "heat only",
			tempC:      36,
			aqi:        1,
			conds:      NewConditions(),
			likelihood: likelihoodHeat,
			cautions:   []string{cautionHydration},
		},
		{
			name:       "very poor air overrides cool temperature",
			tempC:      10,
			aqi:        5,
			conds:      NewConditions(ConditionAsthma),
			likelihood: likelihoodAirVeryPoor,
			cautions:   []string{cautionMask, cautionAsthmaSevere},
		},
		{
			name:       "nothing fires",
			tempC:      20,
			aqi:        1,
			conds:      NewConditions(),
			likelihood: likelihoodComfortable,
			cautions:   []string{cautionNone},
		},
		{
			name:       "heat keeps likelihood over poor air",
			tempC:      36,
			aqi:        4,
			conds:      NewConditions(ConditionAsthma),
			exercises:  true,
			likelihood: likelihoodHeat,
			cautions:   []string{cautionHydration, cautionHeatExercise, cautionAsthmaPoor},
		},
		{
			name:       "heat with every condition",
			tempC:      40,
			aqi:        2,
			conds:      NewConditions(ConditionHighBP, ConditionDiabetes, ConditionAsthma),
			exercises:  true,
			likelihood: likelihoodHeat,
			cautions:   []string{cautionHydration, cautionBloodPressure, cautionBloodSugar, cautionHeatExercise},
		},
		{
			name:       "heat threshold is inclusive",
			tempC:      35,
			aqi:        1,
			conds:      NewConditions(),
			likelihood: likelihoodHeat,
			cautions:   []string{cautionHydration},
		},
		{
			name:       "cool threshold is inclusive",
			tempC:      15,
			aqi:        1,
			conds:      NewConditions(ConditionAsthma),
			likelihood: likelihoodCool,
			cautions:   []string{cautionNone},
		},
		{
			name:       "poor air replaces cool likelihood",
			tempC:      5,
			aqi:        4,
			conds:      NewConditions(),
			likelihood: likelihoodAirPoor,
			cautions:   []string{cautionNone},
		},
		{
			name:       "moderate air with asthma",
			tempC:      22,
			aqi:        3,
			conds:      NewConditions(ConditionAsthma),
			likelihood: likelihoodAirModerate,
			cautions:   []string{cautionAsthmaMod},
		},
		{
			name:       "heat keeps likelihood over moderate air",
			tempC:      38,
			aqi:        3,
			conds:      NewConditions(ConditionAsthma),
			likelihood: likelihoodHeat,
			cautions:   []string{cautionHydration, cautionAsthmaMod},
		},
		{
			name:       "very poor air replaces heat likelihood",
			tempC:      38,
			aqi:        5,
			conds:      NewConditions(ConditionDiabetes),
			likelihood: likelihoodAirVeryPoor,
			cautions:   []string{cautionHydration, cautionBloodSugar, cautionMask},
		},
		{
			name:       "aqi above scale counts as very poor",
			tempC:      20,
			aqi:        9,
			conds:      NewConditions(),
			likelihood: likelihoodAirVeryPoor,
			cautions:   []string{cautionMask},
		},
		{
			name:       "exercise alone in mild weather needs no caution",
			tempC:      25,
			aqi:        2,
			conds:      NewConditions(ConditionHighBP),
			exercises:  true,
			likelihood: likelihoodComfortable,
			cautions:   []string{cautionNone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(
				WeatherReading{TempC: tc.tempC, AQI: tc.aqi},
				HealthProfile{Conditions: tc.conds, ExercisesRegularly: tc.exercises},
			)
			require.Equal(t, tc.likelihood, got.Likelihood)
			require.Equal(t, tc.cautions, got.Cautions)
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	weather := WeatherReading{TempC: 36, AQI: 4}
	profile := HealthProfile{Conditions: NewConditions(ConditionAsthma, ConditionHighBP), ExercisesRegularly: true}

	first := Evaluate(weather, profile)
	second := Evaluate(weather, profile)
	require.Equal(t, first, second)

	first.Cautions[0] = "mutated"
	require.NotEqual(t, first.Cautions[0], Evaluate(weather, profile).Cautions[0])
}

// The source tag must gate the moderate and poor air sentences exactly like a
// case-insensitive "discomfort" search over the current sentence would.
func TestSourceGateMatchesTextualGate(t *testing.T) {
	profiles := []HealthProfile{
		{Conditions: NewConditions()},
		{Conditions: NewConditions(ConditionAsthma, ConditionDiabetes, ConditionHighBP), ExercisesRegularly: true},
	}
	for temp := -10; temp <= 50; temp++ {
		for aqi := 0; aqi <= 6; aqi++ {
			for _, profile := range profiles {
				weather := WeatherReading{TempC: temp, AQI: aqi}
				require.Equal(t, textualLikelihood(weather), Evaluate(weather, profile).Likelihood,
					"temp=%d aqi=%d", temp, aqi)
			}
		}
	}
}

func textualLikelihood(w WeatherReading) string {
	text := likelihoodComfortable
	if w.TempC >= 35 {
		text = likelihoodHeat
	} else if w.TempC <= 15 {
		text = likelihoodCool
	}
	mentionsDiscomfort := strings.Contains(strings.ToLower(text), "discomfort")
	switch {
	case w.AQI >= 5:
		text = likelihoodAirVeryPoor
	case w.AQI == 4 && !mentionsDiscomfort:
		text = likelihoodAirPoor
	case w.AQI == 3 && !mentionsDiscomfort:
		text = likelihoodAirModerate
	}
	return text
}

func TestEvaluateReportsSource(t *testing.T) {
	_, source := evaluate(WeatherReading{TempC: 36, AQI: 4}, HealthProfile{Conditions: NewConditions()})
	require.Equal(t, SourceHeat, source)

	_, source = evaluate(WeatherReading{TempC: 10, AQI: 1}, HealthProfile{Conditions: NewConditions()})
	require.Equal(t, SourceCool, source)

	_, source = evaluate(WeatherReading{TempC: 10, AQI: 3}, HealthProfile{Conditions: NewConditions()})
	require.Equal(t, SourceAir, source)

	_, source = evaluate(WeatherReading{TempC: 20, AQI: 2}, HealthProfile{})
	require.Equal(t, SourceDefault, source)
}
