package frames

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/alignment"
	"github.com/relabs-tech/tracking_alignment/internal/fusion"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// TrackingType selects which parts of the tracker pose are fused into the
// aligned frame. Parts that are not fused are copied from the tracker.
type TrackingType int

const (
	RotationAndPosition TrackingType = iota
	RotationOnly
	PositionOnly
)

func (t TrackingType) String() string {
	switch t {
	case RotationAndPosition:
		return "RotationAndPosition"
	case RotationOnly:
		return "RotationOnly"
	case PositionOnly:
		return "PositionOnly"
	default:
		return fmt.Sprintf("TrackingType(%d)", int(t))
	}
}

// ParseTrackingType accepts the names printed by String, case-insensitively.
func ParseTrackingType(s string) (TrackingType, error) {
	for _, t := range []TrackingType{RotationAndPosition, RotationOnly, PositionOnly} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return RotationAndPosition, fmt.Errorf("unknown tracking type %q", s)
}

// FusesRotation reports whether the aligned rotation comes from the
// alignment tracker rather than straight from the tracker.
func (t TrackingType) FusesRotation() bool {
	return t == RotationOnly || t == RotationAndPosition
}

// FusesPosition reports whether the aligned position is blended rather than
// copied from the tracker.
func (t TrackingType) FusesPosition() bool {
	return t == PositionOnly || t == RotationAndPosition
}

// SampleSource is the tracker as seen by the coordinator. Both calls are
// non-blocking and report false when no new sample is ready.
type SampleSource interface {
	RawSample() (pose.Sample, bool)
	Sample(placement pose.Pose, extrapolationTime float64) (pose.Sample, bool)
}

// TickReport records which steps of a tick ran.
type TickReport struct {
	RawAvailable    bool
	RotationAligned bool
	SampleAvailable bool
	RotationSet     bool
	PositionFused   bool
	PositionSet     bool
	Stage           pose.Stage
}

// Coordinator applies the alignment tracker and the fusion filter to the
// aligned frame. It is the only writer of the aligned frame's local pose.
type Coordinator struct {
	frames  Set
	source  SampleSource
	tracker *alignment.Tracker
	filter  *fusion.Filter
	mode    TrackingType
	logger  zerolog.Logger

	placement         pose.Pose
	extrapolationTime float64
}

// NewCoordinator wires the coordinator to a bound frame set.
func NewCoordinator(frames Set, source SampleSource, tracker *alignment.Tracker, filter *fusion.Filter, mode TrackingType, logger zerolog.Logger) (*Coordinator, error) {
	if frames.Aligned == nil || frames.SensorPose == nil || frames.SensorPose.Parent() != frames.Aligned {
		return nil, fmt.Errorf("%w: aligned frame must be the parent of the sensor-pose frame", ErrHierarchy)
	}
	if frames.Anchor != nil && frames.Aligned.Parent() != frames.Anchor {
		return nil, fmt.Errorf("%w: anchor frame must be the parent of the aligned frame", ErrHierarchy)
	}
	if tracker == nil || filter == nil {
		return nil, fmt.Errorf("frames: coordinator needs a tracker and a filter")
	}
	return &Coordinator{
		frames:    frames,
		source:    source,
		tracker:   tracker,
		filter:    filter,
		mode:      mode,
		logger:    logger,
		placement: pose.Identity(),
	}, nil
}

// Frames returns the bound frame set.
func (c *Coordinator) Frames() Set { return c.frames }

// Mode returns the configured tracking type.
func (c *Coordinator) Mode() TrackingType { return c.mode }

// SetSource attaches or detaches (nil) the tracker.
func (c *Coordinator) SetSource(s SampleSource) { c.source = s }

// Placement is the pose passed to the tracker for processed samples.
func (c *Coordinator) Placement() pose.Pose { return c.placement }

func (c *Coordinator) SetPlacement(p pose.Pose) { c.placement = p }

// ExtrapolationTime is the time processed samples are extrapolated by.
func (c *Coordinator) ExtrapolationTime() float64 { return c.extrapolationTime }

func (c *Coordinator) SetExtrapolationTime(t float64) { c.extrapolationTime = t }

// ResetPosition makes the next 6DoF sample snap the aligned frame to the
// tracker position instead of blending.
func (c *Coordinator) ResetPosition() { c.filter.Reset() }

// AlignedPose returns the aligned frame's local pose.
func (c *Coordinator) AlignedPose() pose.Pose { return c.frames.Aligned.LocalPose() }

// Advance runs one tick. A missing sample ends the tick early and leaves the
// aligned frame as the previous tick left it.
func (c *Coordinator) Advance(now float64) TickReport {
	var report TickReport
	if c.source == nil {
		return report
	}

	aligned := c.frames.Aligned
	sensorPose := c.frames.SensorPose

	// Snapshot before anything below writes to the chain.
	sensorPosition := sensorPose.LocalPosition()
	sensorRotation := sensorPose.LocalRotation()

	raw, ok := c.source.RawSample()
	if !ok {
		return report
	}
	report.RawAvailable = true

	if c.mode.FusesRotation() && c.tracker.State() == alignment.Aligning && raw.Stability.Is6Dof() {
		res, err := c.tracker.Update(raw.Pose.Rotation, sensorRotation, now)
		if err != nil {
			c.logger.Warn().Err(err).Msg("alignment update failed")
		} else {
			c.extrapolationTime = res.TimeBAheadOfA
			c.placement.Rotation = res.RotationARelativeToB
			aligned.SetLocalRotation(res.RotationBSpace)
			report.RotationAligned = true
		}
	}

	sample, ok := c.source.Sample(c.placement, c.extrapolationTime)
	if !ok {
		return report
	}
	report.SampleAvailable = true
	report.Stage = sample.Stability.Stage

	if !c.mode.FusesRotation() {
		aligned.SetLocalRotation(sample.Pose.Rotation)
		sensorPose.SetLocalRotation(pose.IdentityRotation())
		report.RotationSet = true
	}

	if !c.mode.FusesPosition() {
		aligned.SetLocalPosition(sample.Pose.Position)
		sensorPose.SetLocalPosition(r3.Vec{})
		report.PositionSet = true
		return report
	}

	if !sample.Stability.Is6Dof() {
		return report
	}

	current := aligned.TransformPoint(sensorPosition)
	if c.frames.Anchor != nil {
		current = c.frames.Anchor.InverseTransformPoint(current)
	}
	fused := c.filter.Fuse(sample.Pose.Position, current, sample.Stability.Confidence())
	aligned.SetLocalPosition(r3.Add(aligned.LocalPosition(), r3.Sub(fused, current)))
	report.PositionFused = true

	return report
}
