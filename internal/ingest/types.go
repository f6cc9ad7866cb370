// Package ingest accepts telemetry posted by agents, stores it in sqlite and
// serves the most recent readings per station.
package ingest

import "time"

type Station struct {
	ID        string    `json:"id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	ClimateOK *bool     `json:"climate_ok"`
	AirOK     *bool     `json:"air_ok"`
}

// Reading is one accepted telemetry payload as stored by the collector.
// Sequence and CapturedAt are only known for keyed (JSON) payloads.
type Reading struct {
	ID          string     `json:"id"`
	StationID   string     `json:"station_id"`
	Sequence    *uint64    `json:"sequence,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	Format      string     `json:"format"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	HeatIndex   float64    `json:"heat_index"`
	ECO2        float64    `json:"eco2"`
	TVOC        float64    `json:"tvoc"`
	AQI         float64    `json:"aqi"`
	ClimateOK   bool       `json:"climate_ok"`
	AirOK       bool       `json:"air_ok"`
}

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)
