package gtfs

import (
	"strings"

	remoteGtfs "github.com/jamespfennell/gtfs"
)

// Terminals names the two ends of a route. Outbound trips run from Main to
// Secondary.
type Terminals struct {
	Main      string
	Secondary string
}

// Catalog holds the terminal names of every route in a static bundle,
// indexed by GTFS route_id. It is built once and never mutated.
type Catalog struct {
	routes map[string]Terminals
}

// NewCatalog extracts terminal names from a parsed bundle. Trip headsigns
// win: an outbound (direction_id 0) headsign names the secondary terminal
// and an inbound one the main terminal. Routes whose trips carry no
// headsign fall back to a "Main - Secondary" long name.
func NewCatalog(static *remoteGtfs.Static) *Catalog {
	c := &Catalog{routes: make(map[string]Terminals)}
	if static == nil {
		return c
	}

	for _, trip := range static.Trips {
		if trip.Route == nil || trip.Headsign == "" {
			continue
		}
		t := c.routes[trip.Route.Id]
		switch trip.DirectionId {
		case remoteGtfs.DirectionID_True:
			if t.Main == "" {
				t.Main = trip.Headsign
			}
		default:
			if t.Secondary == "" {
				t.Secondary = trip.Headsign
			}
		}
		c.routes[trip.Route.Id] = t
	}

	for _, route := range static.Routes {
		t := c.routes[route.Id]
		if t.Main != "" && t.Secondary != "" {
			continue
		}
		main, secondary, ok := splitLongName(route.LongName)
		if !ok {
			continue
		}
		if t.Main == "" {
			t.Main = main
		}
		if t.Secondary == "" {
			t.Secondary = secondary
		}
		c.routes[route.Id] = t
	}
	return c
}

// Terminals returns the terminal names of routeID.
func (c *Catalog) Terminals(routeID string) (main, secondary string, ok bool) {
	if c == nil {
		return "", "", false
	}
	t, ok := c.routes[routeID]
	return t.Main, t.Secondary, ok
}

// Len returns the number of routes with at least one named terminal.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.routes)
}

func splitLongName(name string) (string, string, bool) {
	parts := strings.Split(name, " - ")
	if len(parts) != 2 {
		return "", "", false
	}
	main, secondary := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if main == "" || secondary == "" {
		return "", "", false
	}
	return main, secondary, true
}
