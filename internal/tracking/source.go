// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracking connects to the 6DoF tracker and exposes its samples as
// non-blocking raw and processed views.
package tracking

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/config"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// ErrNotFound is returned by Discover when no tracker can be reached.
var ErrNotFound = errors.New("tracking: no tracker found")

// Source is a tracker. RawSample and Sample never block and report false
// when no new sample arrived since the previous call of the same method.
type Source interface {
	RawSample() (pose.Sample, bool)
	Sample(placement pose.Pose, extrapolationTime float64) (pose.Sample, bool)
	Close() error
}

// Discover opens the tracker selected by cfg.TrackerSource. The MQTT
// tracker needs a connected client; it is not closed with the source.
func Discover(cfg *config.Config, client mqtt.Client, logger zerolog.Logger) (Source, error) {
	maxAge := time.Duration(cfg.TrackerMaxAge) * time.Millisecond

	switch cfg.TrackerSource {
	case "mock":
		sim := NewSimulator(float64(cfg.MockTrackerLatency) / 1000)
		interval := time.Duration(cfg.MockTrackerInterval) * time.Millisecond
		logger.Info().Dur("interval", interval).Float64("latency", sim.Latency).Msg("using simulated tracker")
		return NewMockSource(sim, interval), nil

	case "mqtt":
		if client == nil || !client.IsConnected() {
			return nil, fmt.Errorf("%w: mqtt client not connected", ErrNotFound)
		}
		src, err := NewMQTTSource(client, cfg.TopicTrackerState, maxAge, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return src, nil

	case "serial":
		src, err := OpenSerialSource(cfg.TrackerSerialPort, cfg.TrackerBaudRate, maxAge, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return src, nil

	default:
		return nil, fmt.Errorf("%w: unknown tracker source %q", ErrNotFound, cfg.TrackerSource)
	}
}
