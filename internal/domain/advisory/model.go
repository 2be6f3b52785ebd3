package advisory

// Request captures the payload accepted by the weather fortune endpoint.
type Request struct {
	Location         string   `json:"location" binding:"notblank"`
	FromDate         string   `json:"fromDate"`
	ToDate           string   `json:"toDate"`
	Exercises        bool     `json:"exercises"`
	HealthConditions []string `json:"healthConditions"`
}

// Response is serialized back to API consumers.
type Response struct {
	Location string         `json:"location"`
	Weather  WeatherReading `json:"weather"`
	Advice   Advisory       `json:"advice"`
}

// WeatherReading is the normalized current-conditions snapshot for one place.
type WeatherReading struct {
	TempC        int    `json:"tempC"`
	AQI          int    `json:"aqi"`
	AQILabel     string `json:"aqiLabel"`
	Humidity     int    `json:"humidity"`
	Condition    string `json:"condition"`
	ResolvedName string `json:"resolvedName"`
}

// Advisory is the computed likelihood sentence and caution list.
type Advisory struct {
	Likelihood string   `json:"likelihood"`
	Cautions   []string `json:"cautions"`
}

// HealthProfile groups the user inputs the rules look at.
type HealthProfile struct {
	Conditions         Conditions
	ExercisesRegularly bool
}
