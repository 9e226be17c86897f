package geo

import (
	"math"
	"testing"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Coordinate
		want float64
	}{
		{"same point", models.Coordinate{Latitude: -23.55, Longitude: -46.63}, models.Coordinate{Latitude: -23.55, Longitude: -46.63}, 0},
		{"one degree of longitude on the equator", models.Coordinate{}, models.Coordinate{Longitude: 1}, 111.19},
		{"one degree of latitude", models.Coordinate{}, models.Coordinate{Latitude: 1}, 111.19},
		{"Sé to Paulista", models.Coordinate{Latitude: -23.5505, Longitude: -46.6333}, models.Coordinate{Latitude: -23.5614, Longitude: -46.6559}, 2.60},
		{"antipodes", models.Coordinate{Latitude: 0, Longitude: 0}, models.Coordinate{Latitude: 0, Longitude: 180}, math.Pi * earthRadiusKm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Distance(%v, %v) = %.4f, want %.2f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceIsSymmetricAndNonNegative(t *testing.T) {
	points := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: -23.5505, Longitude: -46.6333},
		{Latitude: 47.6062, Longitude: -122.3321},
		{Latitude: -89.9, Longitude: 179.9},
		{Latitude: 89.9, Longitude: -179.9},
		{Latitude: 35.6762, Longitude: 139.6503},
	}

	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab := Distance(a, b)
			ba := Distance(b, a)
			if ab < 0 {
				t.Errorf("Distance(%v, %v) = %v, want non-negative", a, b, ab)
			}
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("Distance not symmetric for %v and %v: %v != %v", a, b, ab, ba)
			}
		}
	}
}

func TestIsValidLatLon(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"valid coordinate", -23.55, -46.63, true},
		{"null island", 0, 0, false},
		{"latitude too high", 91, 10, false},
		{"latitude too low", -91, 10, false},
		{"longitude too high", 10, 181, false},
		{"longitude too low", 10, -181, false},
		{"on the bounds", 90, 180, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLatLon(tt.lat, tt.lon); got != tt.want {
				t.Errorf("IsValidLatLon(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}
