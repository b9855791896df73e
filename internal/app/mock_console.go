// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"os"
	"time"

	"github.com/relabs-tech/tracking_alignment/internal/calibration"
	"github.com/relabs-tech/tracking_alignment/internal/frames"
	"github.com/relabs-tech/tracking_alignment/internal/lifecycle"
	"github.com/relabs-tech/tracking_alignment/internal/logging"
	"github.com/relabs-tech/tracking_alignment/internal/orientation"
	"github.com/relabs-tech/tracking_alignment/internal/tracking"
)

// RunMockConsole runs the fusion loop against the mock sensor and the
// simulated tracker, without a broker or config file, and prints the
// aligned pose every printEvery.
func RunMockConsole(tick, printEvery time.Duration, latency float64) error {
	logger := logging.Component(logging.New("info"), "mock-console")

	sim := tracking.NewSimulator(latency)
	src := tracking.NewMockSource(sim, 20*time.Millisecond)
	defer src.Close()

	// The simulated tracker is mounted away from the object's origin.
	store := calibration.MapStore{}
	if err := store.Write(calibration.PlacementGroup, calibration.DefaultKey, calibration.EncodePlacement(sim.Placement)); err != nil {
		return err
	}

	chain := frames.NewChain()
	ctrl, err := lifecycle.New(chain.SensorPose, src, calibration.NewResolver(store, logger), lifecycle.DefaultOptions(), logger)
	if err != nil {
		return err
	}

	var last time.Time
	p := newPipeline(ctrl, orientation.NewMockSource(), func(msg AlignedPose, _ []byte) {
		if time.Since(last) < printEvery {
			return
		}
		last = time.Now()
		printAlignedPose(os.Stdout, msg)
	}, logger)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for now := range ticker.C {
		p.tick(now)
	}
	return nil
}
