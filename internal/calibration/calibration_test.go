package calibration

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

const identityCode = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAACAPw"

func TestEncodePlacement_Identity(t *testing.T) {
	assert.Equal(t, identityCode, EncodePlacement(pose.Identity()))
}

func TestPlacement_RoundTrip(t *testing.T) {
	p := pose.Pose{
		Position: r3.Vec{X: 0.01, Y: 0.05, Z: -0.02},
		Rotation: pose.AxisAngle(r3.Vec{Z: 1}, 1.2),
	}
	got, err := DecodePlacement(EncodePlacement(p))
	require.NoError(t, err)
	assert.InDelta(t, p.Position.X, got.Position.X, 1e-6)
	assert.InDelta(t, p.Position.Y, got.Position.Y, 1e-6)
	assert.InDelta(t, p.Position.Z, got.Position.Z, 1e-6)
	assert.InDelta(t, 0, pose.Angle(p.Rotation, got.Rotation), 1e-3)
}

func TestDecodePlacement_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"empty", "", ErrEmptyCode},
		{"blank", "   ", ErrEmptyCode},
		{"not base64", "***", ErrInvalidCode},
		{"too short", "AAAA", ErrInvalidCode},
		{"zero rotation", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", ErrInvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePlacement(tt.code)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, pose.Identity(), got)
			assert.Equal(t, pose.Identity(), ResolvePlacement(tt.code))
		})
	}
}

func TestFileStore_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "storage.yaml")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	got, err := store.Read(PlacementGroup, DefaultKey)
	require.NoError(t, err)
	assert.Empty(t, got, "missing file reads as empty")

	require.NoError(t, store.Write(PlacementGroup, DefaultKey, identityCode))
	require.NoError(t, store.Write(PlacementGroup, "bench", "xyz"))

	got, err = store.Read(PlacementGroup, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, identityCode, got)

	got, err = store.Read(PlacementGroup, "bench")
	require.NoError(t, err)
	assert.Equal(t, "xyz", got)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("placement: [unclosed"), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Read(PlacementGroup, DefaultKey)
	assert.Error(t, err)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

type memStore struct {
	code string
	err  error
}

func (m memStore) Read(group, key string) (string, error) {
	if group != PlacementGroup || key != DefaultKey {
		return "", nil
	}
	return m.code, m.err
}

func TestResolver_Placement(t *testing.T) {
	valid := pose.Pose{Position: r3.Vec{Y: 0.1}, Rotation: pose.IdentityRotation()}

	tests := []struct {
		name      string
		store     Store
		wantLevel string
		wantPose  pose.Pose
	}{
		{"no storage", nil, "", pose.Identity()},
		{"empty code", memStore{}, `"level":"error"`, pose.Identity()},
		{"read failure", memStore{err: errors.New("disk gone")}, `"level":"warn"`, pose.Identity()},
		{"bad code", memStore{code: "not-a-code"}, `"level":"warn"`, pose.Identity()},
		{"valid code", memStore{code: EncodePlacement(valid)}, `"level":"info"`, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewResolver(tt.store, zerolog.New(&buf))

			got := r.Placement()

			assert.InDelta(t, tt.wantPose.Position.Y, got.Position.Y, 1e-6)
			assert.InDelta(t, 0, pose.Angle(tt.wantPose.Rotation, got.Rotation), 1e-6)
			if tt.wantLevel == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tt.wantLevel)
			}
		})
	}
}

func TestMapStore(t *testing.T) {
	store := MapStore{}
	got, err := store.Read(PlacementGroup, DefaultKey)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Write(PlacementGroup, DefaultKey, identityCode))
	assert.Equal(t, pose.Identity(), NewResolver(store, zerolog.Nop()).Placement())
}
