// Package location provides the user-location collaborators consumed by the
// polling controller.
package location

import (
	"context"

	"github.com/Caiqueoak/cade-meu-busao/internal/geo"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

// Provider resolves the user's current position.
//
// RequestPermission reports whether the user allowed location access.
// CurrentLocation fails with models.ErrLocationUnavailable when permission was
// denied or no position could be determined.
type Provider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentLocation(ctx context.Context) (models.Coordinate, error)
}

// Static is a Provider backed by a fixed coordinate, such as one passed on
// the command line or sent by an HTTP client along with its search.
// A nil or invalid coordinate behaves like a denied permission. Invalid
// includes exactly (0,0), which clients report when they have no fix, so a
// user standing on that point is treated as having no location.
type Static struct {
	coord *models.Coordinate
}

// NewStatic returns a Provider for coord. Passing nil yields a provider that
// always denies access.
func NewStatic(coord *models.Coordinate) *Static {
	if coord == nil {
		return &Static{}
	}
	c := *coord
	return &Static{coord: &c}
}

// FromLatLon returns a Provider for the given pair, or a denying provider when
// either value is missing.
func FromLatLon(lat, lon *float64) *Static {
	if lat == nil || lon == nil {
		return NewStatic(nil)
	}
	return NewStatic(&models.Coordinate{Latitude: *lat, Longitude: *lon})
}

func (s *Static) usable() bool {
	return s.coord != nil && geo.IsValidLatLon(s.coord.Latitude, s.coord.Longitude)
}

// RequestPermission grants access only when a valid coordinate is configured.
func (s *Static) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.usable(), nil
}

// CurrentLocation returns the configured coordinate.
func (s *Static) CurrentLocation(ctx context.Context) (models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinate{}, err
	}
	if !s.usable() {
		return models.Coordinate{}, models.ErrLocationUnavailable
	}
	return *s.coord, nil
}
