package frames

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/alignment"
	"github.com/relabs-tech/tracking_alignment/internal/fusion"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// stubSource hands out fixed samples and records what the coordinator asked for.
type stubSource struct {
	raw      pose.Sample
	rawOK    bool
	sample   pose.Sample
	sampleOK bool

	placements     []pose.Pose
	extrapolations []float64
}

func (s *stubSource) RawSample() (pose.Sample, bool) { return s.raw, s.rawOK }

func (s *stubSource) Sample(placement pose.Pose, extrapolationTime float64) (pose.Sample, bool) {
	s.placements = append(s.placements, placement)
	s.extrapolations = append(s.extrapolations, extrapolationTime)
	return s.sample, s.sampleOK
}

func (s *stubSource) set(p pose.Pose, stage pose.Stage, confidence float64) {
	smp := pose.Sample{Pose: p, Stability: pose.Stability{Stage: stage, Value: confidence}}
	s.raw, s.rawOK = smp, true
	s.sample, s.sampleOK = smp, true
}

func at(x, y, z float64) pose.Pose {
	return pose.Pose{Position: r3.Vec{X: x, Y: y, Z: z}, Rotation: pose.IdentityRotation()}
}

type fixture struct {
	frames  Set
	source  *stubSource
	tracker *alignment.Tracker
	coord   *Coordinator
}

func newFixture(t *testing.T, mode TrackingType) *fixture {
	t.Helper()
	tracker, err := alignment.NewTracker(alignment.DefaultParams(), zerolog.Nop())
	require.NoError(t, err)
	tracker.Start(pose.IdentityRotation(), 0)

	filter, err := fusion.NewFilter(fusion.DefaultFixedWeight)
	require.NoError(t, err)

	chain := NewChain()
	src := &stubSource{}
	coord, err := NewCoordinator(chain, src, tracker, filter, mode, zerolog.Nop())
	require.NoError(t, err)
	return &fixture{frames: chain, source: src, tracker: tracker, coord: coord}
}

func assertVecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

func TestBind(t *testing.T) {
	chain := NewChain()
	got, err := Bind(chain.SensorPose)
	require.NoError(t, err)
	assert.Same(t, chain.Aligned, got.Aligned)
	assert.Same(t, chain.Anchor, got.Anchor)

	aligned := NewFrame("aligned", nil)
	got, err = Bind(NewFrame("sensor", aligned))
	require.NoError(t, err)
	assert.Nil(t, got.Anchor)

	_, err = Bind(NewFrame("orphan", nil))
	assert.ErrorIs(t, err, ErrHierarchy)
	_, err = Bind(nil)
	assert.ErrorIs(t, err, ErrHierarchy)
}

func TestNewCoordinator_RejectsBrokenChain(t *testing.T) {
	tracker, _ := alignment.NewTracker(alignment.DefaultParams(), zerolog.Nop())
	filter, _ := fusion.NewFilter(fusion.DefaultFixedWeight)

	chain := NewChain()
	chain.SensorPose = NewFrame("detached", nil)
	_, err := NewCoordinator(chain, nil, tracker, filter, RotationAndPosition, zerolog.Nop())
	assert.ErrorIs(t, err, ErrHierarchy)

	chain = NewChain()
	chain.Anchor = NewFrame("elsewhere", nil)
	_, err = NewCoordinator(chain, nil, tracker, filter, RotationAndPosition, zerolog.Nop())
	assert.ErrorIs(t, err, ErrHierarchy)
}

func TestAdvance_NoSourceDoesNothing(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.coord.SetSource(nil)
	assert.Equal(t, TickReport{}, f.coord.Advance(0))
}

func TestAdvance_RawUnavailableLeavesFrameUntouched(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.frames.Aligned.SetLocalPose(at(1, 2, 3))
	f.source.set(at(5, 5, 5), pose.Tracking6Dof, 1)
	f.source.rawOK = false

	report := f.coord.Advance(0)

	assert.False(t, report.RawAvailable)
	assert.Equal(t, at(1, 2, 3), f.frames.Aligned.LocalPose())
	assert.Empty(t, f.source.placements, "processed sample must not be read")
}

func TestAdvance_FirstSampleSnapsToTracker(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.source.set(at(2, 3, 4), pose.Tracking6Dof, 0.3)

	report := f.coord.Advance(0)

	assert.True(t, report.RotationAligned)
	assert.True(t, report.PositionFused)
	assertVecNear(t, r3.Vec{X: 2, Y: 3, Z: 4}, f.frames.Aligned.LocalPosition())
}

func TestAdvance_BlendsSecondSample(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.source.set(at(0, 0, 0), pose.Tracking6Dof, 1)
	f.coord.Advance(0)

	f.source.set(at(1, 0, 0), pose.Tracking6Dof, 1)
	f.coord.Advance(0.01)

	got := f.frames.Aligned.LocalPosition()
	assert.InDelta(t, 0.870, got.X, 1e-3)
	assertVecNear(t, r3.Vec{X: 1 / 1.15}, got)
}

func TestAdvance_LowerStageRawLeavesAlignmentUnchanged(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.source.set(at(0, 0, 0), pose.Tracking6Dof, 1)
	f.coord.Advance(0)
	before, ok := f.tracker.Snapshot()
	require.True(t, ok)
	rotation := f.frames.Aligned.LocalRotation()

	for _, stage := range []pose.Stage{pose.InertialDataInitialization, pose.NoTracking, pose.Tracking3Dof, pose.Blind6Dof} {
		smp := pose.Sample{
			Pose:      pose.Pose{Rotation: pose.AxisAngle(r3.Vec{Y: 1}, 1)},
			Stability: pose.Stability{Stage: stage},
		}
		f.source.raw, f.source.sample = smp, smp

		report := f.coord.Advance(0.5)

		assert.False(t, report.RotationAligned, stage.String())
		assert.False(t, report.PositionFused, stage.String())
		after, _ := f.tracker.Snapshot()
		assert.Equal(t, before, after, stage.String())
		assert.Equal(t, rotation, f.frames.Aligned.LocalRotation(), stage.String())
	}
}

func TestAdvance_ProcessedUnavailableKeepsRotationOnly(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	q := pose.AxisAngle(r3.Vec{Z: 1}, 0.4)
	f.source.set(pose.Pose{Position: r3.Vec{X: 9}, Rotation: q}, pose.Tracking6Dof, 1)
	f.source.sampleOK = false

	report := f.coord.Advance(0)

	assert.True(t, report.RotationAligned)
	assert.False(t, report.SampleAvailable)
	assert.InDelta(t, 0, pose.Angle(q, f.frames.Aligned.LocalRotation()), 1e-6)
	assert.Equal(t, r3.Vec{}, f.frames.Aligned.LocalPosition())
}

func TestAdvance_RotationOnlyCopiesPosition(t *testing.T) {
	f := newFixture(t, RotationOnly)
	f.frames.SensorPose.SetLocalPosition(r3.Vec{X: 0.1, Y: 0.2})
	f.source.set(at(4, 5, 6), pose.Tracking3Dof, 0)

	report := f.coord.Advance(0)

	assert.True(t, report.PositionSet)
	assert.False(t, report.PositionFused)
	assert.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, f.frames.Aligned.LocalPosition())
	assert.Equal(t, r3.Vec{}, f.frames.SensorPose.LocalPosition())
}

func TestAdvance_PositionOnlyCopiesRotation(t *testing.T) {
	f := newFixture(t, PositionOnly)
	q := pose.AxisAngle(r3.Vec{X: 1}, 0.7)
	f.frames.SensorPose.SetLocalRotation(pose.AxisAngle(r3.Vec{Y: 1}, 0.3))
	f.source.set(pose.Pose{Rotation: q}, pose.Tracking6Dof, 1)

	report := f.coord.Advance(0)

	assert.False(t, report.RotationAligned)
	assert.True(t, report.RotationSet)
	assert.True(t, report.PositionFused)
	assert.InDelta(t, 0, pose.Angle(q, f.frames.Aligned.LocalRotation()), 1e-6)
	assert.Equal(t, pose.IdentityRotation(), f.frames.SensorPose.LocalRotation())
	snap, _ := f.tracker.Snapshot()
	assert.Zero(t, snap.Updates)
}

func TestAdvance_LowerStageProcessedFreezesPosition(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.source.set(at(1, 1, 1), pose.Tracking6Dof, 1)
	f.coord.Advance(0)

	f.source.set(at(7, 7, 7), pose.Tracking6Dof, 1)
	f.source.sample.Stability = pose.Stability{Stage: pose.Tracking3Dof}
	report := f.coord.Advance(0.01)

	assert.True(t, report.SampleAvailable)
	assert.False(t, report.PositionFused)
	assert.False(t, report.PositionSet)
	assertVecNear(t, r3.Vec{X: 1, Y: 1, Z: 1}, f.frames.Aligned.LocalPosition())
}

func TestAdvance_PassesPlacementAndExtrapolation(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.coord.SetPlacement(at(0, 0.1, 0))
	f.coord.SetExtrapolationTime(0.03)
	f.source.set(at(0, 0, 0), pose.Tracking6Dof, 1)

	f.coord.Advance(0)

	require.Len(t, f.source.placements, 1)
	// The alignment update runs first and rewrites the extrapolation time.
	assert.Equal(t, 0.0, f.source.extrapolations[0])
	assert.Equal(t, r3.Vec{Y: 0.1}, f.source.placements[0].Position)
}

func TestAdvance_SkipThenResumeMatchesSingleTick(t *testing.T) {
	prime := func(f *fixture) {
		f.source.set(at(0.5, 0, 0), pose.Tracking6Dof, 1)
		f.coord.Advance(0)
		f.frames.SensorPose.SetLocalPose(pose.Pose{
			Position: r3.Vec{Y: 0.05},
			Rotation: pose.AxisAngle(r3.Vec{Z: 1}, 0.2),
		})
	}
	next := pose.Pose{Position: r3.Vec{X: 0.6, Z: 0.1}, Rotation: pose.AxisAngle(r3.Vec{Z: 1}, 0.25)}

	skipped := newFixture(t, RotationAndPosition)
	prime(skipped)
	skipped.source.set(next, pose.Tracking6Dof, 0.8)
	skipped.source.rawOK = false
	skipped.coord.Advance(0.01)
	skipped.source.rawOK = true
	skipped.coord.Advance(0.02)

	direct := newFixture(t, RotationAndPosition)
	prime(direct)
	direct.source.set(next, pose.Tracking6Dof, 0.8)
	direct.coord.Advance(0.02)

	assert.Equal(t, direct.frames.Aligned.LocalPose(), skipped.frames.Aligned.LocalPose())
	a, _ := direct.tracker.Snapshot()
	b, _ := skipped.tracker.Snapshot()
	assert.Equal(t, a, b)
}

func TestAdvance_ReexpressesThroughAnchor(t *testing.T) {
	f := newFixture(t, RotationAndPosition)
	f.frames.Anchor.SetLocalPose(pose.Pose{
		Position: r3.Vec{X: 10, Y: -2},
		Rotation: pose.AxisAngle(r3.Vec{Z: 1}, 1.2),
	})
	f.frames.SensorPose.SetLocalPosition(r3.Vec{X: 0.3})
	tracked := r3.Vec{X: 1, Y: 2, Z: 0.5}
	f.source.set(pose.Pose{Position: tracked, Rotation: pose.IdentityRotation()}, pose.Tracking6Dof, 1)

	f.coord.Advance(0)

	world := f.frames.SensorPose.TransformPoint(r3.Vec{})
	assertVecNear(t, tracked, f.frames.Anchor.InverseTransformPoint(world))
}

func TestParseTrackingType(t *testing.T) {
	for _, tt := range []TrackingType{RotationAndPosition, RotationOnly, PositionOnly} {
		got, err := ParseTrackingType(tt.String())
		require.NoError(t, err)
		assert.Equal(t, tt, got)
	}
	got, err := ParseTrackingType("rotationonly")
	require.NoError(t, err)
	assert.Equal(t, RotationOnly, got)

	_, err = ParseTrackingType("sideways")
	assert.Error(t, err)

	assert.True(t, RotationAndPosition.FusesRotation())
	assert.True(t, RotationAndPosition.FusesPosition())
	assert.False(t, RotationOnly.FusesPosition())
	assert.False(t, PositionOnly.FusesRotation())
}
