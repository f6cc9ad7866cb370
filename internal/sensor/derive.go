package sensor

import "math"

// Band is one classification band: values up to and including Upper get Label.
type Band struct {
	Upper float64
	Label string
}

// Air-quality bands for the ENS160 outputs.
var (
	// eCO2 in ppm; keep below 1000 for comfort.
	ECO2Bands = []Band{
		{Upper: 1000, Label: "good"},
		{Upper: 2000, Label: "moderate"},
		{Upper: 5000, Label: "poor"},
		{Upper: math.Inf(1), Label: "unhealthy"},
	}

	// TVOC in ppb.
	TVOCBands = []Band{
		{Upper: 150, Label: "good"},
		{Upper: 500, Label: "moderate"},
		{Upper: 1000, Label: "poor"},
		{Upper: math.Inf(1), Label: "unhealthy"},
	}

	// UBA air quality index, 1..5.
	AQIBands = []Band{
		{Upper: 1, Label: "excellent"},
		{Upper: 2, Label: "good"},
		{Upper: 3, Label: "moderate"},
		{Upper: 4, Label: "poor"},
		{Upper: 5, Label: "unhealthy"},
	}
)

// Classify returns the label of the first band whose upper bound is >= v, or the
// last band's label when v exceeds every bound. Bands must be ordered by Upper.
func Classify(v float64, bands []Band) string {
	if len(bands) == 0 {
		return ""
	}
	for _, b := range bands {
		if v <= b.Upper {
			return b.Label
		}
	}
	return bands[len(bands)-1].Label
}

// Rothfusz regression coefficients for temperature in Celsius.
const (
	hiC1 = -8.78469475556
	hiC2 = 1.61139411
	hiC3 = 2.33854883889
	hiC4 = -0.14611605
	hiC5 = -0.012308094
	hiC6 = -0.0164248277778
	hiC7 = 0.002211732
	hiC8 = 0.00072546
	hiC9 = -0.000003582
)

// HeatIndex computes the apparent temperature in Celsius from air temperature (C)
// and relative humidity (%), rounded to two decimals.
func HeatIndex(t, rh float64) float64 {
	hi := hiC1 +
		hiC2*t +
		hiC3*rh +
		hiC4*t*rh +
		hiC5*t*t +
		hiC6*rh*rh +
		hiC7*t*t*rh +
		hiC8*t*rh*rh +
		hiC9*t*t*rh*rh
	return Round2(hi)
}

// ClimateHeatIndex returns the heat index of a climate snapshot; it is absent unless
// both temperature and humidity have a value.
func ClimateHeatIndex(s Snapshot) (float64, bool) {
	t := s.Current(Temperature)
	rh := s.Current(Humidity)
	if t == nil || rh == nil {
		return 0, false
	}
	return HeatIndex(*t, *rh), true
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
