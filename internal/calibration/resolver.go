package calibration

import (
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// Resolver loads the active placement code and resolves it, falling back to
// the identity placement on any failure.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver returns a resolver reading from store, which may be nil when
// no storage is available.
func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// LoadCode reads the placement code. ok is false when there is no storage.
func (r *Resolver) LoadCode() (code string, ok bool, err error) {
	if r.store == nil {
		return "", false, nil
	}
	code, err = r.store.Read(PlacementGroup, DefaultKey)
	return code, true, err
}

// Placement returns the resolved placement. It never fails.
func (r *Resolver) Placement() pose.Pose {
	code, ok, err := r.LoadCode()
	if !ok {
		return pose.Identity()
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read placement storage, using identity placement")
		return pose.Identity()
	}
	if code == "" {
		r.logger.Error().Msg("failed to get placement code")
		return pose.Identity()
	}

	p, err := DecodePlacement(code)
	if err != nil {
		r.logger.Warn().Err(err).Str("code", code).Msg("failed to resolve placement, using identity placement")
		return pose.Identity()
	}
	r.logger.Info().
		Float64("x", p.Position.X).Float64("y", p.Position.Y).Float64("z", p.Position.Z).
		Msg("placement resolved")
	return p
}
