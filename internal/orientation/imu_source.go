// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// gyroLSBPerDPS is the MPU9250 gyro sensitivity at its default ±250°/s range.
const gyroLSBPerDPS = 131.0

// gyroReader is the part of the MPU9250 driver the sensor source needs.
type gyroReader interface {
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

type imuSource struct {
	gyro     gyroReader
	now      func() time.Time
	rotation quat.Number
	last     time.Time
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// integrates its gyroscope, starting from the identity rotation.
func NewIMUSource(spiDev, csPin string, logger zerolog.Logger) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	// Keep the device still while this runs.
	if err := imu.Calibrate(); err != nil {
		logger.Warn().Err(err).Msg("IMU calibration failed, gyro bias not removed")
	} else {
		logger.Info().Str("spi", spiDev).Msg("IMU calibration complete")
	}

	return newIMUSource(imu, time.Now), nil
}

func newIMUSource(gyro gyroReader, now func() time.Time) *imuSource {
	return &imuSource{gyro: gyro, now: now, rotation: pose.IdentityRotation()}
}

// Next reads the gyroscope and integrates it over the time since the
// previous read. The first read only sets the time reference.
func (s *imuSource) Next() (quat.Number, error) {
	gx, err := s.gyro.GetRotationX()
	if err != nil {
		return s.rotation, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := s.gyro.GetRotationY()
	if err != nil {
		return s.rotation, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := s.gyro.GetRotationZ()
	if err != nil {
		return s.rotation, fmt.Errorf("IMU gyro Z: %w", err)
	}

	t := s.now()
	if !s.last.IsZero() {
		dt := t.Sub(s.last).Seconds()
		s.rotation = pose.Integrate(s.rotation, gyroRate(gx, gy, gz), dt)
	}
	s.last = t
	return s.rotation, nil
}

// gyroRate converts raw gyro counts to rad/s.
func gyroRate(gx, gy, gz int16) r3.Vec {
	k := math.Pi / 180 / gyroLSBPerDPS
	return r3.Vec{X: float64(gx) * k, Y: float64(gy) * k, Z: float64(gz) * k}
}
