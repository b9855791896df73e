package lifecycle

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/calibration"
	"github.com/relabs-tech/tracking_alignment/internal/frames"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

type fakeSource struct {
	sample pose.Sample
	ok     bool
}

func (f *fakeSource) RawSample() (pose.Sample, bool) { return f.sample, f.ok }

func (f *fakeSource) Sample(pose.Pose, float64) (pose.Sample, bool) { return f.sample, f.ok }

func (f *fakeSource) track(x float64) {
	f.sample = pose.Sample{
		Pose:      pose.Pose{Position: r3.Vec{X: x}, Rotation: pose.IdentityRotation()},
		Stability: pose.Stability{Stage: pose.Tracking6Dof, Value: 1},
	}
	f.ok = true
}

type codeStore string

func (s codeStore) Read(group, key string) (string, error) { return string(s), nil }

func newController(t *testing.T, store calibration.Store, opts Options) (*Controller, *fakeSource, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	src := &fakeSource{}
	chain := frames.NewChain()
	c, err := New(chain.SensorPose, src, calibration.NewResolver(store, logger), opts, logger)
	require.NoError(t, err)
	return c, src, &buf
}

func TestNew_RequiresParentFrame(t *testing.T) {
	orphan := frames.NewFrame("sensor_pose", nil)
	_, err := New(orphan, &fakeSource{}, nil, DefaultOptions(), zerolog.Nop())
	assert.ErrorIs(t, err, frames.ErrHierarchy)
}

func TestNew_WithoutAnchor(t *testing.T) {
	aligned := frames.NewFrame("aligned", nil)
	sensor := frames.NewFrame("sensor_pose", aligned)
	c, err := New(sensor, &fakeSource{}, nil, DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, c.Frames().Anchor)
	assert.Same(t, aligned, c.Frames().Aligned)
}

func TestNew_RejectsBadWeight(t *testing.T) {
	opts := DefaultOptions()
	opts.FixedWeight = 0
	_, err := New(frames.NewChain().SensorPose, &fakeSource{}, nil, opts, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_StartsAligning(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtrapolationTime = 0.03
	c, _, _ := newController(t, nil, opts)

	assert.True(t, c.Aligning())
	s, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0.03, s.ExtrapolationTime)
	assert.Equal(t, pose.Identity(), c.Placement())
}

func TestNew_UsesStoredPlacement(t *testing.T) {
	placement := pose.Pose{
		Position: r3.Vec{Y: 0.05, Z: -0.02},
		Rotation: pose.AxisAngle(r3.Vec{Z: 1}, 1.5707963),
	}
	c, _, _ := newController(t, codeStore(calibration.EncodePlacement(placement)), DefaultOptions())

	s, ok := c.Snapshot()
	require.True(t, ok)
	assert.InDelta(t, 0, pose.Angle(placement.Rotation, s.RotationOffset), 1e-3)
	assert.InDelta(t, 0.05, c.Placement().Position.Y, 1e-6)
}

func TestCalibrationFailureFallsBackToIdentity(t *testing.T) {
	c, src, logs := newController(t, codeStore("garbage!"), DefaultOptions())

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.True(t, c.Aligning())
	s, _ := c.Snapshot()
	assert.Equal(t, pose.IdentityRotation(), s.RotationOffset)

	src.track(1)
	report := c.Advance(0)
	assert.True(t, report.RotationAligned)
	assert.True(t, report.PositionFused)
}

func TestFocusCycleSnapsNextSample(t *testing.T) {
	c, src, _ := newController(t, nil, DefaultOptions())

	src.track(1)
	c.Advance(0)
	assert.InDelta(t, 1, c.AlignedPose().Position.X, 1e-9)

	src.track(2)
	c.Advance(0.01)
	assert.InDelta(t, (1*0.15+2)/1.15, c.AlignedPose().Position.X, 1e-9)

	c.OnFocusChanged(false)
	assert.False(t, c.Aligning())
	c.OnFocusChanged(true)
	assert.True(t, c.Aligning())

	src.track(5)
	c.Advance(0.02)
	assert.InDelta(t, 5, c.AlignedPose().Position.X, 1e-9)
}

func TestOnPause(t *testing.T) {
	c, _, _ := newController(t, nil, DefaultOptions())

	c.OnPause(true)
	assert.False(t, c.Aligning())
	c.OnPause(true)
	assert.False(t, c.Aligning())

	c.OnPause(false)
	assert.True(t, c.Aligning())
}

func TestStoppedControllerStillTracksPosition(t *testing.T) {
	c, src, _ := newController(t, nil, DefaultOptions())
	c.OnFocusChanged(false)

	src.track(3)
	report := c.Advance(0)
	assert.False(t, report.RotationAligned)
	assert.True(t, report.PositionFused)
	assert.InDelta(t, 3, c.AlignedPose().Position.X, 1e-9)
}

func TestRestartCarriesExtrapolationTime(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtrapolationTime = 0.04
	c, _, _ := newController(t, nil, opts)

	c.OnFocusChanged(false)
	c.OnFocusChanged(true)

	s, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0.04, s.ExtrapolationTime)
	assert.Equal(t, c.ExtrapolationTime(), s.ExtrapolationTime)
}

func TestReloadPlacement(t *testing.T) {
	store := calibration.MapStore{}
	c, src, _ := newController(t, store, DefaultOptions())
	assert.Equal(t, pose.Identity(), c.Placement())

	src.track(1)
	c.Advance(0)
	src.track(2)
	c.Advance(0.01)

	moved := pose.Pose{Position: r3.Vec{Y: 0.1}, Rotation: pose.IdentityRotation()}
	require.NoError(t, store.Write(calibration.PlacementGroup, calibration.DefaultKey, calibration.EncodePlacement(moved)))
	c.ReloadPlacement()
	assert.InDelta(t, 0.1, c.Placement().Position.Y, 1e-6)

	src.track(4)
	c.Advance(0.02)
	assert.InDelta(t, 4, c.AlignedPose().Position.X, 1e-9, "reload snaps like a restart")

	c.OnFocusChanged(false)
	require.NoError(t, store.Write(calibration.PlacementGroup, calibration.DefaultKey, ""))
	c.ReloadPlacement()
	assert.False(t, c.Aligning())
	assert.InDelta(t, 0.1, c.Placement().Position.Y, 1e-6)
}
