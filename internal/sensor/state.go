package sensor

import (
	"context"
	"time"
)

// Channel names shared by drivers, states and the wire encoders.
const (
	Temperature = "temperature"
	Humidity    = "humidity"
	ECO2        = "eco2"
	TVOC        = "tvoc"
	AQI         = "aqi"
)

// Readings is one successful driver sample keyed by channel name.
type Readings map[string]float64

// Driver reads one physical sensor. Implementations bound their own blocking time.
type Driver interface {
	Read(ctx context.Context) (Readings, error)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(ctx context.Context) (Readings, error)

func (f DriverFunc) Read(ctx context.Context) (Readings, error) {
	return f(ctx)
}

// State groups the channels fed by one driver together with the outcome of the
// latest poll. Poll is the only method that mutates it.
type State struct {
	name       string
	channels   []*Channel
	healthy    bool
	lastUpdate time.Time
	lastErr    error

	now func() time.Time
}

func NewState(name string, channels ...string) *State {
	s := &State{name: name, now: time.Now}
	for _, ch := range channels {
		s.channels = append(s.channels, NewChannel(ch))
	}
	return s
}

// NewClimateState returns the temperature/humidity state.
func NewClimateState() *State {
	return NewState("climate", Temperature, Humidity)
}

// NewAirQualityState returns the eCO2/TVOC/AQI state.
func NewAirQualityState() *State {
	return NewState("air_quality", ECO2, TVOC, AQI)
}

func (s *State) Name() string {
	return s.name
}

// Poll reads the driver once. On success every channel present in the readings is
// recorded and the state becomes healthy; on failure only the health flag changes.
func (s *State) Poll(ctx context.Context, d Driver) bool {
	readings, err := d.Read(ctx)
	if err != nil {
		s.healthy = false
		s.lastErr = err
		return false
	}

	for _, ch := range s.channels {
		if v, ok := readings[ch.Name()]; ok {
			ch.Record(v)
		}
	}
	s.healthy = true
	s.lastErr = nil
	s.lastUpdate = s.now()
	return true
}

func (s *State) Healthy() bool {
	return s.healthy
}

// Err returns the driver error of the latest poll, nil after a successful one.
func (s *State) Err() error {
	return s.lastErr
}

// LastUpdate returns the time of the latest successful poll.
func (s *State) LastUpdate() (time.Time, bool) {
	return s.lastUpdate, !s.lastUpdate.IsZero()
}

// Channel returns the named channel, or nil.
func (s *State) Channel(name string) *Channel {
	for _, ch := range s.channels {
		if ch.Name() == name {
			return ch
		}
	}
	return nil
}

// Current returns the current value of the named channel.
func (s *State) Current(name string) (float64, bool) {
	ch := s.Channel(name)
	if ch == nil {
		return 0, false
	}
	return ch.Current()
}

// ChannelSnapshot is a copy of one channel at snapshot time.
type ChannelSnapshot struct {
	Name    string
	Current *float64
	Average *float64
	Min     float64
	Max     float64
}

// Snapshot is a copy of a State; it shares no memory with the State it came from.
type Snapshot struct {
	Name       string
	Healthy    bool
	LastUpdate time.Time
	Channels   []ChannelSnapshot
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Name:       s.name,
		Healthy:    s.healthy,
		LastUpdate: s.lastUpdate,
		Channels:   make([]ChannelSnapshot, 0, len(s.channels)),
	}
	for _, ch := range s.channels {
		cs := ChannelSnapshot{Name: ch.Name()}
		if v, ok := ch.Current(); ok {
			cs.Current = &v
		}
		if v, ok := ch.Average(); ok {
			cs.Average = &v
		}
		cs.Min, cs.Max = ch.Range()
		snap.Channels = append(snap.Channels, cs)
	}
	return snap
}

// Current returns the named channel's value from the snapshot, or nil.
func (s Snapshot) Current(name string) *float64 {
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch.Current
		}
	}
	return nil
}

// Channel returns the named channel snapshot.
func (s Snapshot) Channel(name string) (ChannelSnapshot, bool) {
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChannelSnapshot{}, false
}
