package openweather

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type geocodeResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// firstGeocodeResult reads the first match from a geocoding body. Anything
// other than a non-empty array of objects reports ok=false.
func firstGeocodeResult(body json.RawMessage) (geocodeResult, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
		return geocodeResult{}, false
	}
	var first geocodeResult
	if err := json.Unmarshal(items[0], &first); err != nil {
		return geocodeResult{}, false
	}
	return first, true
}

type weatherMain struct {
	Temp     lenientNumber `json:"temp"`
	Humidity lenientNumber `json:"humidity"`
}

type weatherCondition struct {
	Main        string
	Description string
}

func (w *weatherCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Main        json.RawMessage `json:"main"`
		Description json.RawMessage `json:"description"`
	}
	*w = weatherCondition{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	decodeLenient(raw.Main, &w.Main)
	decodeLenient(raw.Description, &w.Description)
	return nil
}

// weatherPayload decodes the current-weather body. Members of an unexpected
// JSON type are dropped so the readings fall back to their defaults.
type weatherPayload struct {
	Main    *weatherMain
	Weather []weatherCondition
}

func (p *weatherPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Main    json.RawMessage `json:"main"`
		Weather json.RawMessage `json:"weather"`
	}
	*p = weatherPayload{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	decodeLenient(raw.Main, &p.Main)
	decodeLenient(raw.Weather, &p.Weather)
	return nil
}

func (p weatherPayload) tempC() int {
	if p.Main == nil {
		return 0
	}
	return roundHalfUp(p.Main.Temp.or(0))
}

func (p weatherPayload) humidity() int {
	if p.Main == nil {
		return 0
	}
	return roundHalfUp(p.Main.Humidity.or(0))
}

func (p weatherPayload) condition() string {
	if len(p.Weather) > 0 {
		if p.Weather[0].Description != "" {
			return p.Weather[0].Description
		}
		if p.Weather[0].Main != "" {
			return p.Weather[0].Main
		}
	}
	return "Clear"
}

type airEntry struct {
	Main *struct {
		AQI lenientNumber `json:"aqi"`
	}
}

func (e *airEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Main json.RawMessage `json:"main"`
	}
	*e = airEntry{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	decodeLenient(raw.Main, &e.Main)
	return nil
}

// airPayload decodes the air-pollution body with the same tolerance as
// weatherPayload.
type airPayload struct {
	List []airEntry
}

func (p *airPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		List json.RawMessage `json:"list"`
	}
	*p = airPayload{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	decodeLenient(raw.List, &p.List)
	return nil
}

// Missing or non-integer AQI reads as 1 (Good).
func (p airPayload) aqi() int {
	if len(p.List) == 0 || p.List[0].Main == nil {
		return 1
	}
	v := p.List[0].Main.AQI.or(1)
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 1
	}
	return int(v)
}

// decodeLenient stores raw into dst only when it decodes cleanly.
func decodeLenient[T any](raw json.RawMessage, dst *T) {
	if len(raw) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}

// lenientNumber accepts JSON numbers and numeric strings. Anything else,
// including null, leaves it unset instead of failing the decode.
type lenientNumber struct {
	value float64
	valid bool
}

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*n = lenientNumber{}
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*n = lenientNumber{}
			return nil
		}
		raw = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = lenientNumber{}
		return nil
	}
	*n = lenientNumber{value: v, valid: true}
	return nil
}

func (n lenientNumber) or(fallback float64) float64 {
	if !n.valid {
		return fallback
	}
	return n.value
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
