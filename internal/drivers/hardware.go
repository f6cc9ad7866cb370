package drivers

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Hardware owns the I2C bus shared by both sensors.
type Hardware struct {
	Climate    *Climate
	AirQuality *AirQuality

	bus i2c.BusCloser
}

// OpenHardware initialises the host drivers, opens busName ("" selects the
// first bus) and probes both sensors.
func OpenHardware(busName string, bme280Addr, ens160Addr uint16) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	climate, err := OpenBME280(bus, bme280Addr)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}

	air, err := OpenENS160(bus, ens160Addr)
	if err != nil {
		_ = climate.Close()
		_ = bus.Close()
		return nil, err
	}

	return &Hardware{Climate: climate, AirQuality: air, bus: bus}, nil
}

func (h *Hardware) Close() error {
	return errors.Join(h.Climate.Close(), h.AirQuality.Close(), h.bus.Close())
}
