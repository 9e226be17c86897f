package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"RFC3339 with offset", `"2025-03-01T10:15:00-03:00"`, time.Date(2025, 3, 1, 13, 15, 0, 0, time.UTC), false},
		{"without zone", `"2025-03-01T10:15:00"`, time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC), false},
		{"space separated", `"2025-03-01 10:15:00"`, time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC), false},
		{"empty string", `""`, time.Time{}, false},
		{"null", `null`, time.Time{}, false},
		{"garbage", `"yesterday"`, time.Time{}, true},
		{"not a string", `42`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error: %v, got: %v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if !ts.Time().Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ts.Time())
			}
		})
	}
}

func TestBusRouteDecoding(t *testing.T) {
	payload := `[{
		"routeCode": "8000-10",
		"lineId": 33000,
		"direction": 1,
		"mainTerminal": "Lapa",
		"secondaryTerminal": "Terminal Pq. D. Pedro II",
		"vehicleCount": 2,
		"buses": [
			{"prefix": 11433, "isAccessible": true, "updatedAt": "2025-03-01T10:15:00Z", "latitude": -23.54, "longitude": -46.63},
			{"prefix": 11434, "isAccessible": false, "updatedAt": "", "latitude": -23.55, "longitude": -46.64}
		]
	}]`

	var routes []BusRoute
	if err := json.Unmarshal([]byte(payload), &routes); err != nil {
		t.Fatalf("Failed to decode routes: %v", err)
	}

	if len(routes) != 1 {
		t.Fatalf("Expected 1 route, got %d", len(routes))
	}
	route := routes[0]
	if route.RouteCode != "8000-10" || route.LineID != 33000 || route.Direction != 1 {
		t.Errorf("Unexpected route header: %+v", route)
	}
	if len(route.Buses) != 2 {
		t.Fatalf("Expected 2 buses, got %d", len(route.Buses))
	}
	if !route.Buses[0].IsAccessible || route.Buses[0].Prefix != 11433 {
		t.Errorf("Unexpected first bus: %+v", route.Buses[0])
	}
	if !route.Buses[1].UpdatedAt.Time().IsZero() {
		t.Errorf("Expected zero time for empty updatedAt, got %v", route.Buses[1].UpdatedAt.Time())
	}
	want := Coordinate{Latitude: -23.54, Longitude: -46.63}
	if got := route.Buses[0].Coordinate(); got != want {
		t.Errorf("Expected coordinate %+v, got %+v", want, got)
	}
}
