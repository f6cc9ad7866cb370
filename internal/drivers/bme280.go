// Package drivers adapts physical and simulated sensors to sensor.Driver.
package drivers

import (
	"context"
	"fmt"

	"github.com/HusainCode/pico-firmware/internal/sensor"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// EnvSensor is the subset of a periph environmental device the climate driver
// uses.
type EnvSensor interface {
	Sense(env *physic.Env) error
	Halt() error
}

// Climate reads temperature and relative humidity from an EnvSensor.
type Climate struct {
	dev EnvSensor
}

func NewClimate(dev EnvSensor) *Climate {
	return &Climate{dev: dev}
}

// OpenBME280 initialises a BME280 at addr on bus.
func OpenBME280(bus i2c.Bus, addr uint16) (*Climate, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 at %#x: %w", addr, err)
	}
	return NewClimate(dev), nil
}

func (c *Climate) Read(ctx context.Context) (sensor.Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var env physic.Env
	if err := c.dev.Sense(&env); err != nil {
		return nil, fmt.Errorf("bme280 sense: %w", err)
	}

	// Humidity is fixed point at 0.00001 %rH.
	humidity := float64(env.Humidity) / float64(physic.PercentRH)
	if humidity < 0 || humidity > 100 {
		return nil, fmt.Errorf("bme280 humidity out of range: %.2f%%", humidity)
	}

	return sensor.Readings{
		sensor.Temperature: env.Temperature.Celsius(),
		sensor.Humidity:    humidity,
	}, nil
}

func (c *Climate) Close() error {
	return c.dev.Halt()
}
