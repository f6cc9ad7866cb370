package sensor

import "math"

// WindowSize is the number of most recent samples kept for the rolling average.
const WindowSize = 10

// Channel tracks one measured quantity: the latest sample, lifetime extrema and a
// rolling window of the last WindowSize samples.
type Channel struct {
	name    string
	current float64
	hasData bool
	min     float64
	max     float64

	// window is a ring buffer; head is the index of the oldest sample.
	window [WindowSize]float64
	head   int
	size   int
}

func NewChannel(name string) *Channel {
	return &Channel{
		name: name,
		min:  math.Inf(1),
		max:  math.Inf(-1),
	}
}

func (c *Channel) Name() string {
	return c.name
}

// Record stores v as the current sample. Non-finite values are rejected and the
// previous sample is kept; the return value reports whether v was accepted.
func (c *Channel) Record(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}

	c.current = v
	c.hasData = true
	if v < c.min {
		c.min = v
	}
	if v > c.max {
		c.max = v
	}

	if c.size < WindowSize {
		c.window[(c.head+c.size)%WindowSize] = v
		c.size++
	} else {
		c.window[c.head] = v
		c.head = (c.head + 1) % WindowSize
	}
	return true
}

// Current returns the most recent accepted sample, or false if none was recorded.
func (c *Channel) Current() (float64, bool) {
	return c.current, c.hasData
}

// Average returns the arithmetic mean of the rolling window.
func (c *Channel) Average() (float64, bool) {
	if c.size == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < c.size; i++ {
		sum += c.window[(c.head+i)%WindowSize]
	}
	return sum / float64(c.size), true
}

// Range returns the lifetime extrema. Before the first Record they are the +Inf/-Inf
// sentinels, so callers should check Current first.
func (c *Channel) Range() (lo, hi float64) {
	return c.min, c.max
}

// Window returns a copy of the rolling window, oldest first.
func (c *Channel) Window() []float64 {
	out := make([]float64, c.size)
	for i := 0; i < c.size; i++ {
		out[i] = c.window[(c.head+i)%WindowSize]
	}
	return out
}
