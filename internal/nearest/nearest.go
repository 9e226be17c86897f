// Package nearest ranks the buses of a set of routes by their straight-line
// distance to a user and estimates when each one will arrive.
package nearest

import (
	"math"
	"sort"

	"github.com/Caiqueoak/cade-meu-busao/internal/geo"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

const (
	// AverageSpeedKmh is the assumed average speed of a city bus. ETAs are
	// straight-line distance at this speed, not road-network travel time.
	AverageSpeedKmh = 22

	// MaxResults is the number of buses a ranking keeps.
	MaxResults = 3
)

// EstimateETA returns the minutes a bus needs to cover distanceKm at
// AverageSpeedKmh, rounded to the nearest minute.
func EstimateETA(distanceKm float64) int {
	return int(math.Round(distanceKm / AverageSpeedKmh * 60))
}

// Select returns up to MaxResults buses across all routes, closest first.
//
// Buses at the same distance keep the order in which they appear in routes.
// The result is empty, not nil, when no route has any bus.
func Select(origin models.Coordinate, routes []models.BusRoute) []models.RankedBus {
	candidates := make([]models.RankedBus, 0)
	for _, route := range routes {
		for _, bus := range route.Buses {
			distance := geo.Distance(origin, bus.Coordinate())
			candidates = append(candidates, models.RankedBus{
				DistanceKm: distance,
				EtaMinutes: EstimateETA(distance),
				Position:   bus,
				Route:      route,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	if len(candidates) > MaxResults {
		candidates = candidates[:MaxResults]
	}
	return candidates
}
