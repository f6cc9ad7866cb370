package drivers

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/HusainCode/pico-firmware/internal/sensor"
	"periph.io/x/conn/v3/i2c"
)

// ENS160 registers.
const (
	regPartID       = 0x00
	regOpMode       = 0x10
	regTempIn       = 0x13
	regDeviceStatus = 0x20
	regDataAQI      = 0x21

	ens160PartID = 0x0160

	opModeIdle     = 0x01
	opModeStandard = 0x02
)

// Validity flags reported in DEVICE_STATUS bits 3:2.
const (
	validityNormal = iota
	validityWarmUp
	validityInitialStartUp
	validityInvalid
)

var (
	ErrENS160WarmingUp = errors.New("ens160 warming up")
	ErrENS160Invalid   = errors.New("ens160 output invalid")
)

// AirQuality reads eCO2, TVOC and AQI from an ENS160 gas sensor.
type AirQuality struct {
	dev *i2c.Dev
}

// OpenENS160 checks the part id at addr and switches the sensor to standard
// operating mode.
func OpenENS160(bus i2c.Bus, addr uint16) (*AirQuality, error) {
	a := &AirQuality{dev: &i2c.Dev{Bus: bus, Addr: addr}}

	id := make([]byte, 2)
	if err := a.dev.Tx([]byte{regPartID}, id); err != nil {
		return nil, fmt.Errorf("ens160 at %#x: read part id: %w", addr, err)
	}
	if got := binary.LittleEndian.Uint16(id); got != ens160PartID {
		return nil, fmt.Errorf("ens160 at %#x: unexpected part id %#04x", addr, got)
	}

	if err := a.dev.Tx([]byte{regOpMode, opModeStandard}, nil); err != nil {
		return nil, fmt.Errorf("ens160 at %#x: set standard mode: %w", addr, err)
	}
	return a, nil
}

func (a *AirQuality) Read(ctx context.Context) (sensor.Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := make([]byte, 1)
	if err := a.dev.Tx([]byte{regDeviceStatus}, status); err != nil {
		return nil, fmt.Errorf("ens160 read status: %w", err)
	}
	switch (status[0] >> 2) & 0x03 {
	case validityWarmUp:
		return nil, ErrENS160WarmingUp
	case validityInvalid:
		return nil, ErrENS160Invalid
	}

	// AQI, TVOC (2 bytes) and eCO2 (2 bytes) are contiguous.
	data := make([]byte, 5)
	if err := a.dev.Tx([]byte{regDataAQI}, data); err != nil {
		return nil, fmt.Errorf("ens160 read data: %w", err)
	}

	aqi := data[0] & 0x07
	if aqi < 1 || aqi > 5 {
		return nil, fmt.Errorf("%w: aqi %d", ErrENS160Invalid, aqi)
	}

	return sensor.Readings{
		sensor.AQI:  float64(aqi),
		sensor.TVOC: float64(binary.LittleEndian.Uint16(data[1:3])),
		sensor.ECO2: float64(binary.LittleEndian.Uint16(data[3:5])),
	}, nil
}

// Compensate feeds ambient temperature and humidity to the gas sensor's
// internal correction.
func (a *AirQuality) Compensate(celsius, humidity float64) error {
	kelvin64 := uint16(math.Round((celsius + 273.15) * 64))
	rh512 := uint16(math.Round(humidity * 512))

	w := []byte{regTempIn, 0, 0, 0, 0}
	binary.LittleEndian.PutUint16(w[1:3], kelvin64)
	binary.LittleEndian.PutUint16(w[3:5], rh512)
	if err := a.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("ens160 write compensation: %w", err)
	}
	return nil
}

// Close puts the sensor in idle mode.
func (a *AirQuality) Close() error {
	return a.dev.Tx([]byte{regOpMode, opModeIdle}, nil)
}
