package geo

import (
	"github.com/golang/geo/s2"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

// earthRadiusKm is the Earth's volumetric mean radius in kilometres.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between a and b.
//
// s2.LatLng.Distance evaluates the haversine formula, so the result is stable
// for nearby points and symmetric in its arguments. Distance(a, a) is 0.
func Distance(a, b models.Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * earthRadiusKm
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
//
// Note: (0,0) is treated as invalid even though it is a real location in the
// Gulf of Guinea. Devices and clients that fail to resolve a fix commonly
// report it as a placeholder.
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}
