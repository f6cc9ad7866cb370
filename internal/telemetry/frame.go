package telemetry

import (
	"time"

	"github.com/HusainCode/pico-firmware/internal/sensor"
)

// Frame is the immutable snapshot of all sensor state taken once per cycle.
type Frame struct {
	Sequence   uint64
	Timestamp  time.Time
	Climate    sensor.Snapshot
	AirQuality sensor.Snapshot

	// HeatIndex is nil unless both temperature and humidity have a value.
	HeatIndex *float64

	ECO2Band string
	TVOCBand string
	AQIBand  string
}

// BuildFrame copies the current sensor state into a new Frame.
func BuildFrame(ts time.Time, seq uint64, climate, air *sensor.State) Frame {
	f := Frame{
		Sequence:   seq,
		Timestamp:  ts,
		Climate:    climate.Snapshot(),
		AirQuality: air.Snapshot(),
	}

	if hi, ok := sensor.ClimateHeatIndex(f.Climate); ok {
		f.HeatIndex = &hi
	}
	if v := f.AirQuality.Current(sensor.ECO2); v != nil {
		f.ECO2Band = sensor.Classify(*v, sensor.ECO2Bands)
	}
	if v := f.AirQuality.Current(sensor.TVOC); v != nil {
		f.TVOCBand = sensor.Classify(*v, sensor.TVOCBands)
	}
	if v := f.AirQuality.Current(sensor.AQI); v != nil {
		f.AQIBand = sensor.Classify(*v, sensor.AQIBands)
	}
	return f
}

func (f Frame) Temperature() *float64 { return f.Climate.Current(sensor.Temperature) }
func (f Frame) Humidity() *float64    { return f.Climate.Current(sensor.Humidity) }
func (f Frame) ECO2() *float64        { return f.AirQuality.Current(sensor.ECO2) }
func (f Frame) TVOC() *float64        { return f.AirQuality.Current(sensor.TVOC) }
func (f Frame) AQI() *float64         { return f.AirQuality.Current(sensor.AQI) }
