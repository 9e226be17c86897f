package models

import "time"

// Coordinate is a point on the Earth's surface in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BusPosition is the last reported position of a single vehicle on a route.
// Values are produced by a route fetcher and never mutated afterwards.
type BusPosition struct {
	Prefix       int       `json:"prefix"`
	IsAccessible bool      `json:"isAccessible"`
	UpdatedAt    Timestamp `json:"updatedAt"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
}

// Coordinate returns the position as a Coordinate.
func (p BusPosition) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// BusRoute describes one line/direction combination and the vehicles
// currently active on it. A route with no buses is valid.
type BusRoute struct {
	RouteCode         string        `json:"routeCode"`
	LineID            int           `json:"lineId"`
	Direction         int           `json:"direction"`
	MainTerminal      string        `json:"mainTerminal"`
	SecondaryTerminal string        `json:"secondaryTerminal"`
	VehicleCount      int           `json:"vehicleCount"`
	Buses             []BusPosition `json:"buses"`
}

// RankedBus is a bus paired with its distance from the user and the
// estimated minutes until it arrives.
type RankedBus struct {
	DistanceKm float64     `json:"distanceKm"`
	EtaMinutes int         `json:"etaMinutes"`
	Position   BusPosition `json:"position"`
	Route      BusRoute    `json:"route"`
}

// Board is what a search session displays: the ranked buses of the most
// recent successful fetch, or a message when the line had no buses.
type Board struct {
	Line      string      `json:"line"`
	Nearest   []RankedBus `json:"nearest"`
	Routes    []BusRoute  `json:"routes"`
	Message   string      `json:"message,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
