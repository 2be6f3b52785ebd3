package advisory

const (
	heatThresholdC = 35
	coolThresholdC = 15
	aqiVeryPoor    = 5
	aqiPoor        = 4
	aqiModerate    = 3
)

const (
	likelihoodComfortable = "Weather conditions seem generally comfortable."
	likelihoodHeat        = "High heat may cause significant discomfort and health risks."
	likelihoodCool        = "Cool temperatures may require extra layers for comfort."
	likelihoodAirVeryPoor = "Very poor air quality poses a significant health risk, especially for sensitive groups."
	likelihoodAirPoor     = "Poor air quality may affect comfort and health for many individuals."
	likelihoodAirModerate = "Moderate air pollution could affect sensitive individuals."
)

const (
	cautionHydration     = "Stay hydrated by drinking plenty of water. Avoid direct sun during peak hours (11 AM - 4 PM)."
	cautionBloodPressure = "Monitor your blood pressure as extreme heat can affect it. Stay in cool, air-conditioned environments."
	cautionBloodSugar    = "Heat can affect blood sugar levels. Test them more frequently and keep your insulin cool."
	cautionHeatExercise  = "Even with high fitness levels, heat stroke is a risk. Opt for indoor workouts or exercise during cooler parts of the day."
	cautionMask          = "Limit prolonged outdoor activity and consider a well-fitted mask if going outside."
	cautionAsthmaSevere  = "Critical: Air quality is hazardous for asthma. Keep inhaler accessible and stay indoors as much as possible."
	cautionAsthmaPoor    = "Air quality is unhealthy for asthma. Reduce strenuous outdoor activity and keep your inhaler ready."
	cautionAsthmaMod     = "Air quality may trigger symptoms. Prefer lighter outdoor activity and monitor closely."
	cautionNone          = "No specific health cautions necessary based on your inputs. Enjoy your day!"
)

// LikelihoodSource records which rule picked the likelihood sentence.
type LikelihoodSource string

const (
	SourceDefault LikelihoodSource = "default"
	SourceHeat    LikelihoodSource = "heat"
	SourceCool    LikelihoodSource = "cool"
	SourceAir     LikelihoodSource = "air"
)

type likelihood struct {
	text   string
	source LikelihoodSource
}

func (l *likelihood) set(text string, source LikelihoodSource) {
	l.text = text
	l.source = source
}

// Heat-driven text already warns about discomfort, so the moderate and poor
// air sentences must not replace it.
func (l likelihood) heatDriven() bool {
	return l.source == SourceHeat
}

// Evaluate maps a weather reading and health profile to an advisory.
func Evaluate(weather WeatherReading, profile HealthProfile) Advisory {
	advice, _ := evaluate(weather, profile)
	return advice
}

func evaluate(weather WeatherReading, profile HealthProfile) (Advisory, LikelihoodSource) {
	current := likelihood{text: likelihoodComfortable, source: SourceDefault}
	cautions := newCautionSet()
	conds := profile.Conditions

	if weather.TempC >= heatThresholdC {
		current.set(likelihoodHeat, SourceHeat)
		cautions.add(cautionHydration)
		if conds.Has(ConditionHighBP) {
			cautions.add(cautionBloodPressure)
		}
		if conds.Has(ConditionDiabetes) {
			cautions.add(cautionBloodSugar)
		}
		if profile.ExercisesRegularly {
			cautions.add(cautionHeatExercise)
		}
	} else if weather.TempC <= coolThresholdC {
		current.set(likelihoodCool, SourceCool)
	}

	switch {
	case weather.AQI >= aqiVeryPoor:
		current.set(likelihoodAirVeryPoor, SourceAir)
		cautions.add(cautionMask)
		if conds.Has(ConditionAsthma) {
			cautions.add(cautionAsthmaSevere)
		}
	case weather.AQI == aqiPoor:
		if !current.heatDriven() {
			current.set(likelihoodAirPoor, SourceAir)
		}
		if conds.Has(ConditionAsthma) {
			cautions.add(cautionAsthmaPoor)
		}
	case weather.AQI == aqiModerate:
		if !current.heatDriven() {
			current.set(likelihoodAirModerate, SourceAir)
		}
		if conds.Has(ConditionAsthma) {
			cautions.add(cautionAsthmaMod)
		}
	}

	if cautions.empty() {
		cautions.add(cautionNone)
	}

	return Advisory{Likelihood: current.text, Cautions: cautions.list()}, current.source
}

// AQILabel names an air quality index on the 1-5 scale.
func AQILabel(aqi int) string {
	switch aqi {
	case 1:
		return "Good"
	case 2:
		return "Fair"
	case 3:
		return "Moderate"
	case 4:
		return "Poor"
	case 5:
		return "Very Poor"
	default:
		return "Unknown"
	}
}

type cautionSet struct {
	items []string
	seen  map[string]struct{}
}

func newCautionSet() *cautionSet {
	return &cautionSet{seen: make(map[string]struct{})}
}

func (c *cautionSet) add(msg string) {
	if _, ok := c.seen[msg]; ok {
		return
	}
	c.seen[msg] = struct{}{}
	c.items = append(c.items, msg)
}

func (c *cautionSet) empty() bool {
	return len(c.items) == 0
}

func (c *cautionSet) list() []string {
	out := make([]string, len(c.items))
	copy(out, c.items)
	return out
}
