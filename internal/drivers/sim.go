package drivers

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/HusainCode/pico-firmware/internal/sensor"
)

var ErrSimulatedFault = errors.New("simulated sensor fault")

// Sim is a random-walk sensor for running the agent without hardware. Each Read
// moves every channel by at most Step and clamps it to [Min, Max].
type Sim struct {
	mu       sync.Mutex
	rng      *rand.Rand
	channels []SimChannel
	faultP   float64
}

type SimChannel struct {
	Name     string
	Start    float64
	Min, Max float64
	Step     float64
	// Integer channels are rounded after each step.
	Integer bool

	value float64
}

// NewSim builds a simulator; faultP is the probability that a Read fails.
func NewSim(seed uint64, faultP float64, channels ...SimChannel) *Sim {
	s := &Sim{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		faultP: faultP,
	}
	for _, ch := range channels {
		ch.value = ch.Start
		s.channels = append(s.channels, ch)
	}
	return s
}

// NewSimClimate simulates an indoor room around 22 °C and 45 %RH.
func NewSimClimate(seed uint64) *Sim {
	return NewSim(seed, 0,
		SimChannel{Name: sensor.Temperature, Start: 22, Min: -10, Max: 45, Step: 0.3},
		SimChannel{Name: sensor.Humidity, Start: 45, Min: 0, Max: 100, Step: 1.5},
	)
}

// NewSimAirQuality simulates a ventilated room.
func NewSimAirQuality(seed uint64) *Sim {
	return NewSim(seed, 0,
		SimChannel{Name: sensor.ECO2, Start: 600, Min: 400, Max: 6000, Step: 40, Integer: true},
		SimChannel{Name: sensor.TVOC, Start: 100, Min: 0, Max: 1500, Step: 15, Integer: true},
		SimChannel{Name: sensor.AQI, Start: 2, Min: 1, Max: 5, Step: 1, Integer: true},
	)
}

func (s *Sim) Read(ctx context.Context) (sensor.Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faultP > 0 && s.rng.Float64() < s.faultP {
		return nil, ErrSimulatedFault
	}

	out := make(sensor.Readings, len(s.channels))
	for i := range s.channels {
		ch := &s.channels[i]
		v := ch.value + (s.rng.Float64()*2-1)*ch.Step
		if ch.Integer {
			v = math.Round(v)
		}
		ch.value = math.Min(ch.Max, math.Max(ch.Min, v))
		out[ch.Name] = ch.value
	}
	return out, nil
}
