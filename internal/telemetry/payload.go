package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CSVFields is the field order of the compact delimited payload.
var CSVFields = []string{
	"temperature", "humidity", "heat_index", "eco2", "tvoc", "aqi", "dht_status", "ens_status",
}

// Fixed2 is a number that is always written with two decimals.
type Fixed2 float64

func (f Fixed2) MarshalJSON() ([]byte, error) {
	return []byte(formatFixed2(float64(f))), nil
}

func (f *Fixed2) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Fixed2(v)
	return nil
}

// Status carries the per-sensor health flags of the latest poll.
type Status struct {
	DHT bool `json:"dht"`
	ENS bool `json:"ens"`
}

// Payload is the keyed wire form shared by the agent and the collector.
type Payload struct {
	StationID   string    `json:"station_id"`
	Sequence    uint64    `json:"sequence"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature Fixed2    `json:"temperature"`
	Humidity    Fixed2    `json:"humidity"`
	HeatIndex   Fixed2    `json:"heat_index"`
	ECO2        Fixed2    `json:"eco2"`
	TVOC        Fixed2    `json:"tvoc"`
	AQI         Fixed2    `json:"aqi"`
	Status      Status    `json:"status"`
}

// NewPayload maps a frame to the wire form; absent values become zero.
func NewPayload(stationID string, f Frame) Payload {
	return Payload{
		StationID:   stationID,
		Sequence:    f.Sequence,
		Timestamp:   f.Timestamp.UTC(),
		Temperature: Fixed2(orZero(f.Temperature())),
		Humidity:    Fixed2(orZero(f.Humidity())),
		HeatIndex:   Fixed2(orZero(f.HeatIndex)),
		ECO2:        Fixed2(orZero(f.ECO2())),
		TVOC:        Fixed2(orZero(f.TVOC())),
		AQI:         Fixed2(orZero(f.AQI())),
		Status: Status{
			DHT: f.Climate.Healthy,
			ENS: f.AirQuality.Healthy,
		},
	}
}

// ParseCSV parses the compact delimited form. Station, sequence and timestamp are
// not part of it and are left zero.
func ParseCSV(data []byte) (Payload, error) {
	line := strings.TrimSpace(string(data))
	parts := strings.Split(line, ",")
	if len(parts) != len(CSVFields) {
		return Payload{}, fmt.Errorf("expected %d fields, got %d", len(CSVFields), len(parts))
	}

	nums := make([]float64, 6)
	for i := range nums {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return Payload{}, fmt.Errorf("field %s: %w", CSVFields[i], err)
		}
		nums[i] = v
	}
	dht, err := parseStatus(parts[6])
	if err != nil {
		return Payload{}, fmt.Errorf("field %s: %w", CSVFields[6], err)
	}
	ens, err := parseStatus(parts[7])
	if err != nil {
		return Payload{}, fmt.Errorf("field %s: %w", CSVFields[7], err)
	}

	return Payload{
		Temperature: Fixed2(nums[0]),
		Humidity:    Fixed2(nums[1]),
		HeatIndex:   Fixed2(nums[2]),
		ECO2:        Fixed2(nums[3]),
		TVOC:        Fixed2(nums[4]),
		AQI:         Fixed2(nums[5]),
		Status:      Status{DHT: dht, ENS: ens},
	}, nil
}

// ParseJSON parses the keyed form.
func ParseJSON(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func parseStatus(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid status %q (allowed: 0, 1)", s)
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatFixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
