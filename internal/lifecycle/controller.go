// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package lifecycle binds alignment to the host's focus and pause events
// and drives the per-tick update.
package lifecycle

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/alignment"
	"github.com/relabs-tech/tracking_alignment/internal/calibration"
	"github.com/relabs-tech/tracking_alignment/internal/frames"
	"github.com/relabs-tech/tracking_alignment/internal/fusion"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// Options configures a Controller.
type Options struct {
	TrackingType      frames.TrackingType
	FixedWeight       float64
	ExtrapolationTime float64
	Params            alignment.Params
}

// DefaultOptions fuses rotation and position with the default tunables.
func DefaultOptions() Options {
	return Options{
		TrackingType: frames.RotationAndPosition,
		FixedWeight:  fusion.DefaultFixedWeight,
		Params:       alignment.DefaultParams(),
	}
}

// Controller owns the alignment tracker, the fusion filter and the
// coordinator. All methods must be called from the tick goroutine.
type Controller struct {
	coord    *frames.Coordinator
	tracker  *alignment.Tracker
	filter   *fusion.Filter
	resolver *calibration.Resolver
	logger   zerolog.Logger
}

// New binds the frames above sensorPose, resolves the placement and starts
// aligning. resolver may be nil, in which case the identity placement is used.
func New(sensorPose *frames.Frame, source frames.SampleSource, resolver *calibration.Resolver, opts Options, logger zerolog.Logger) (*Controller, error) {
	set, err := frames.Bind(sensorPose)
	if err != nil {
		return nil, err
	}
	tracker, err := alignment.NewTracker(opts.Params, logger)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}
	filter, err := fusion.NewFilter(opts.FixedWeight)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}
	coord, err := frames.NewCoordinator(set, source, tracker, filter, opts.TrackingType, logger)
	if err != nil {
		return nil, err
	}
	coord.SetExtrapolationTime(opts.ExtrapolationTime)
	if resolver == nil {
		resolver = calibration.NewResolver(nil, logger)
	}

	c := &Controller{
		coord:    coord,
		tracker:  tracker,
		filter:   filter,
		resolver: resolver,
		logger:   logger,
	}
	c.start()
	logger.Info().
		Str("tracking_type", opts.TrackingType.String()).
		Str("aligned", set.Aligned.Name()).
		Msg("lifecycle controller ready")
	return c, nil
}

func (c *Controller) start() {
	placement := c.resolver.Placement()
	c.coord.SetPlacement(placement)
	c.tracker.Start(placement.Rotation, c.coord.ExtrapolationTime())
	c.coord.ResetPosition()
}

// OnFocusChanged starts aligning when the host gains focus and stops when
// it loses it.
func (c *Controller) OnFocusChanged(focused bool) {
	c.logger.Debug().Bool("focused", focused).Msg("focus changed")
	if focused {
		c.start()
		return
	}
	c.tracker.Stop()
}

// ReloadPlacement restarts alignment with a freshly resolved placement.
// While stopped it does nothing; the next focus gain resolves it anyway.
func (c *Controller) ReloadPlacement() {
	if !c.Aligning() {
		return
	}
	c.logger.Info().Msg("reloading placement")
	c.start()
}

// OnPause is OnFocusChanged(!paused).
func (c *Controller) OnPause(paused bool) {
	c.OnFocusChanged(!paused)
}

// Advance runs one tick at time now (seconds).
func (c *Controller) Advance(now float64) frames.TickReport {
	return c.coord.Advance(now)
}

// Aligning reports whether the alignment tracker is running.
func (c *Controller) Aligning() bool {
	return c.tracker.State() == alignment.Aligning
}

// AlignedPose is the aligned frame's local pose after the last tick.
func (c *Controller) AlignedPose() pose.Pose {
	return c.coord.AlignedPose()
}

// ExtrapolationTime is the extrapolation time used for the next tick.
func (c *Controller) ExtrapolationTime() float64 {
	return c.coord.ExtrapolationTime()
}

// Placement is the placement currently passed to the tracker.
func (c *Controller) Placement() pose.Pose {
	return c.coord.Placement()
}

// Frames returns the bound frame set.
func (c *Controller) Frames() frames.Set {
	return c.coord.Frames()
}

// SetSource swaps the tracking source, for example after rediscovery.
func (c *Controller) SetSource(s frames.SampleSource) {
	c.coord.SetSource(s)
}

// Snapshot exposes the alignment state for diagnostics.
func (c *Controller) Snapshot() (alignment.Snapshot, bool) {
	return c.tracker.Snapshot()
}
