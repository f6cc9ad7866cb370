package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Encoder turns a frame into a request body.
type Encoder interface {
	Encode(f Frame) ([]byte, error)
	ContentType() string
}

// NewEncoder returns the encoder for a PAYLOAD_FORMAT value.
func NewEncoder(format, stationID string) (Encoder, error) {
	switch format {
	case "csv":
		return CSVEncoder{}, nil
	case "json":
		return JSONEncoder{StationID: stationID}, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q (allowed: csv, json)", format)
	}
}

// CSVEncoder writes the compact form:
//
//	temperature,humidity,heat_index,eco2,tvoc,aqi,dht_status,ens_status
type CSVEncoder struct{}

func (CSVEncoder) ContentType() string { return "text/plain" }

func (CSVEncoder) Encode(f Frame) ([]byte, error) {
	fields := []string{
		formatFixed2(orZero(f.Temperature())),
		formatFixed2(orZero(f.Humidity())),
		formatFixed2(orZero(f.HeatIndex)),
		formatFixed2(orZero(f.ECO2())),
		formatFixed2(orZero(f.TVOC())),
		formatFixed2(orZero(f.AQI())),
		statusFlag(f.Climate.Healthy),
		statusFlag(f.AirQuality.Healthy),
	}
	return []byte(strings.Join(fields, ",")), nil
}

type JSONEncoder struct {
	StationID string
}

func (JSONEncoder) ContentType() string { return "application/json" }

func (e JSONEncoder) Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(NewPayload(e.StationID, f))
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

func statusFlag(healthy bool) string {
	if healthy {
		return "1"
	}
	return "0"
}
