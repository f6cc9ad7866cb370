package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/HusainCode/pico-firmware/internal/sensor"
)

var frameTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func polledStates(t *testing.T, climate, air sensor.Readings) (*sensor.State, *sensor.State) {
	t.Helper()
	ctx := context.Background()

	c := sensor.NewClimateState()
	if climate != nil {
		c.Poll(ctx, sensor.DriverFunc(func(context.Context) (sensor.Readings, error) { return climate, nil }))
	}
	a := sensor.NewAirQualityState()
	if air != nil {
		a.Poll(ctx, sensor.DriverFunc(func(context.Context) (sensor.Readings, error) { return air, nil }))
	}
	return c, a
}

func TestCSVEncoder_AllFieldsPresent(t *testing.T) {
	c, a := polledStates(t,
		sensor.Readings{sensor.Temperature: 30, sensor.Humidity: 80},
		sensor.Readings{sensor.ECO2: 450, sensor.TVOC: 120.5, sensor.AQI: 2},
	)
	f := BuildFrame(frameTime, 1, c, a)

	got, err := CSVEncoder{}.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "30.00,80.00,37.67,450.00,120.50,2.00,1,1"
	if string(got) != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

func TestCSVEncoder_AbsentValuesAreZero(t *testing.T) {
	c, a := polledStates(t,
		sensor.Readings{sensor.Temperature: 21.5},
		nil,
	)
	f := BuildFrame(frameTime, 1, c, a)
	if f.HeatIndex != nil {
		t.Fatalf("HeatIndex = %v, want nil without humidity", *f.HeatIndex)
	}

	got, err := CSVEncoder{}.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "21.50,0.00,0.00,0.00,0.00,0.00,1,0"
	if string(got) != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

func TestCSVEncoder_UnhealthyKeepsStaleValues(t *testing.T) {
	c, a := polledStates(t,
		sensor.Readings{sensor.Temperature: 19, sensor.Humidity: 55},
		sensor.Readings{sensor.ECO2: 800, sensor.TVOC: 40, sensor.AQI: 1},
	)
	a.Poll(context.Background(), sensor.DriverFunc(func(context.Context) (sensor.Readings, error) {
		return nil, errors.New("ens160: invalid output")
	}))

	got, err := CSVEncoder{}.Encode(BuildFrame(frameTime, 2, c, a))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasSuffix(string(got), ",800.00,40.00,1.00,1,0") {
		t.Errorf("Encode = %q, want stale air quality values with ens_status 0", got)
	}
}

func TestJSONEncoder(t *testing.T) {
	c, a := polledStates(t,
		sensor.Readings{sensor.Temperature: 30, sensor.Humidity: 80},
		nil,
	)
	enc := JSONEncoder{StationID: "greenhouse"}
	if enc.ContentType() != "application/json" {
		t.Errorf("ContentType = %q", enc.ContentType())
	}

	got, err := enc.Encode(BuildFrame(frameTime, 7, c, a))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	s := string(got)
	for _, want := range []string{
		`"station_id":"greenhouse"`,
		`"sequence":7`,
		`"timestamp":"2026-03-14T09:26:53Z"`,
		`"temperature":30.00`,
		`"heat_index":37.67`,
		`"eco2":0.00`,
		`"status":{"dht":true,"ens":false}`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Encode = %s, missing %s", s, want)
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"timestamp", "temperature", "humidity", "heat_index", "eco2", "tvoc", "aqi", "status"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON payload missing key %q", key)
		}
	}
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format  string
		wantCT  string
		wantErr bool
	}{
		{format: "csv", wantCT: "text/plain"},
		{format: "json", wantCT: "application/json"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := NewEncoder(tt.format, "st")
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewEncoder error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEncoder: %v", err)
			}
			if enc.ContentType() != tt.wantCT {
				t.Errorf("ContentType = %q, want %q", enc.ContentType(), tt.wantCT)
			}
		})
	}
}
