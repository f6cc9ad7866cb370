// Package agent runs the sample, frame, encode and deliver cycle.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/HusainCode/pico-firmware/internal/delivery"
	"github.com/HusainCode/pico-firmware/internal/sensor"
	"github.com/HusainCode/pico-firmware/internal/telemetry"
)

// Sender delivers one payload; *delivery.Client implements it.
type Sender interface {
	Send(ctx context.Context, url string, header http.Header, payload []byte) (delivery.Receipt, error)
}

// Recorder receives cycle outcomes; *metrics.Agent implements it.
type Recorder interface {
	CycleCompleted()
	PollFailed(sensor string)
	DeliverySucceeded(attempts int, took time.Duration, at time.Time)
	DeliveryFailed(class string, attempts int, took time.Duration)
}

// Compensator is implemented by gas sensors that correct their output for
// ambient temperature and humidity.
type Compensator interface {
	Compensate(celsius, humidity float64) error
}

// Target is where frames go.
type Target struct {
	URL       string
	APIKey    string
	StationID string
}

type Option func(*Agent)

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(a *Agent) { a.recorder = r }
}

// WithClock replaces time.Now for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// Agent owns both sensor states and runs one cycle at a time. It is not safe
// for concurrent use.
type Agent struct {
	climate    *sensor.State
	air        *sensor.State
	climateDrv sensor.Driver
	airDrv     sensor.Driver

	encoder telemetry.Encoder
	sender  Sender
	url     string
	header  http.Header

	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	seq      uint64
}

func New(target Target, climate, air sensor.Driver, enc telemetry.Encoder, sender Sender, opts ...Option) *Agent {
	a := &Agent{
		climate:    sensor.NewClimateState(),
		air:        sensor.NewAirQualityState(),
		climateDrv: climate,
		airDrv:     air,
		encoder:    enc,
		sender:     sender,
		url:        target.URL,
		header:     delivery.Headers(target.APIKey, enc.ContentType(), target.StationID),
		recorder:   nopRecorder{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.recorder == nil {
		a.recorder = nopRecorder{}
	}
	return a
}

// Report is the outcome of one cycle.
type Report struct {
	Frame     telemetry.Frame
	Delivered bool
	Receipt   delivery.Receipt
	// Err is the encode or delivery failure, already logged.
	Err error
}

// RunCycle polls the climate sensor then the air-quality sensor, builds a frame
// from both states, encodes it and sends it. Failures are logged and reported,
// never returned as a reason to stop.
func (a *Agent) RunCycle(ctx context.Context) Report {
	a.poll(ctx, a.climate, a.climateDrv)
	a.compensate()
	a.poll(ctx, a.air, a.airDrv)

	a.seq++
	frame := telemetry.BuildFrame(a.now(), a.seq, a.climate, a.air)
	a.logFrame(frame)
	report := Report{Frame: frame}
	defer a.recorder.CycleCompleted()

	payload, err := a.encoder.Encode(frame)
	if err != nil {
		a.logger.Error("encode frame failed", "sequence", frame.Sequence, "error", err)
		a.recorder.DeliveryFailed("encode", 0, 0)
		report.Err = err
		return report
	}

	start := time.Now()
	receipt, err := a.sender.Send(ctx, a.url, a.header, payload)
	took := time.Since(start)
	if err != nil {
		attempts := 0
		var derr *delivery.Error
		if errors.As(err, &derr) {
			attempts = derr.Attempts
		}
		a.logger.Error("delivery failed, frame dropped",
			"sequence", frame.Sequence,
			"attempts", attempts,
			"error", err,
		)
		a.recorder.DeliveryFailed(failureClass(err), attempts, took)
		report.Err = err
		return report
	}

	a.logger.Info("frame delivered",
		"sequence", frame.Sequence,
		"status", receipt.Status,
		"attempts", receipt.Attempts,
		"took", took,
	)
	a.recorder.DeliverySucceeded(receipt.Attempts, took, a.now())
	report.Delivered = true
	report.Receipt = receipt
	return report
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (a *Agent) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("agent started", "interval", interval, "url", a.url)
	for {
		a.RunCycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Agent) poll(ctx context.Context, s *sensor.State, d sensor.Driver) {
	if s.Poll(ctx, d) {
		return
	}
	a.logger.Warn("sensor poll failed", "sensor", s.Name(), "error", s.Err())
	a.recorder.PollFailed(s.Name())
}

func (a *Agent) compensate() {
	c, ok := a.airDrv.(Compensator)
	if !ok || !a.climate.Healthy() {
		return
	}
	t, okT := a.climate.Current(sensor.Temperature)
	rh, okH := a.climate.Current(sensor.Humidity)
	if !okT || !okH {
		return
	}
	if err := c.Compensate(t, rh); err != nil {
		a.logger.Debug("air quality compensation failed", "error", err)
	}
}

func (a *Agent) logFrame(f telemetry.Frame) {
	if !a.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"sequence", f.Sequence}
	for _, snap := range []sensor.Snapshot{f.Climate, f.AirQuality} {
		for _, ch := range snap.Channels {
			if ch.Current == nil {
				continue
			}
			attrs = append(attrs, slog.Group(ch.Name,
				"current", *ch.Current,
				"avg", *ch.Average,
				"min", ch.Min,
				"max", ch.Max,
			))
		}
	}
	if f.HeatIndex != nil {
		attrs = append(attrs, "heat_index", *f.HeatIndex)
	}
	if f.ECO2Band != "" {
		attrs = append(attrs, "eco2_band", f.ECO2Band, "tvoc_band", f.TVOCBand, "aqi_band", f.AQIBand)
	}
	a.logger.Debug("frame built", attrs...)
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, delivery.ErrClientStatus):
		return "client"
	case errors.Is(err, delivery.ErrServerStatus):
		return "server"
	case errors.Is(err, delivery.ErrUnknownStatus):
		return "unknown"
	case errors.Is(err, delivery.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

type nopRecorder struct{}

func (nopRecorder) CycleCompleted()                                 {}
func (nopRecorder) PollFailed(string)                               {}
func (nopRecorder) DeliverySucceeded(int, time.Duration, time.Time) {}
func (nopRecorder) DeliveryFailed(string, int, time.Duration)       {}
