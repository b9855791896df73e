package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/frames"
	"github.com/relabs-tech/tracking_alignment/internal/lifecycle"
	"github.com/relabs-tech/tracking_alignment/internal/orientation"
)

// pipeline is one tick loop: read the orientation sensor into the
// sensor-pose frame, advance the controller, publish the aligned pose.
type pipeline struct {
	ctrl       *lifecycle.Controller
	sensor     orientation.Source
	sensorPose *frames.Frame
	publish    func(AlignedPose, []byte)
	logger     zerolog.Logger
	start      time.Time
	ticks      int
}

func newPipeline(ctrl *lifecycle.Controller, sensor orientation.Source, publish func(AlignedPose, []byte), logger zerolog.Logger) *pipeline {
	return &pipeline{
		ctrl:       ctrl,
		sensor:     sensor,
		sensorPose: ctrl.Frames().SensorPose,
		publish:    publish,
		logger:     logger,
	}
}

// tick runs one tick at wall time now.
func (p *pipeline) tick(now time.Time) AlignedPose {
	if p.start.IsZero() {
		p.start = now
	}
	t := now.Sub(p.start).Seconds()

	if q, err := p.sensor.Next(); err != nil {
		p.logger.Warn().Err(err).Msg("orientation sensor read failed")
	} else {
		p.sensorPose.SetLocalRotation(q)
	}

	report := p.ctrl.Advance(t)
	p.ticks++

	msg := newAlignedPose(t, p.ctrl.AlignedPose(), report, p.ctrl.Aligning(), p.ctrl.ExtrapolationTime())
	if p.publish != nil {
		data, err := json.Marshal(msg)
		if err != nil {
			p.logger.Error().Err(err).Msg("aligned pose encode failed")
			return msg
		}
		p.publish(msg, data)
	}
	return msg
}
