package tracker

import (
	"errors"
	"fmt"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

// State is the lifecycle phase of a Controller.
type State int

const (
	Idle State = iota
	AwaitingLocation
	Fetching
	Polling
	Stopped
)

var stateNames = map[State]string{
	Idle:             "idle",
	AwaitingLocation: "awaiting_location",
	Fetching:         "fetching",
	Polling:          "polling",
	Stopped:          "stopped",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrSearchInProgress is returned when Search is called while another
	// manual search of the same controller has not finished.
	ErrSearchInProgress = errors.New("search already in progress")

	// ErrStopped is returned by Search once the controller has been stopped.
	ErrStopped = errors.New("controller stopped")
)

// NoBusesMessage is shown when the line exists but the upstream returned no routes.
const NoBusesMessage = "It was not possible to find buses for this line."

// Display is a point-in-time copy of what a session shows.
type Display struct {
	SessionID string             `json:"sessionId"`
	State     State              `json:"state"`
	Loading   bool               `json:"loading"`
	Board     models.Board       `json:"board"`
	LastError string             `json:"lastError,omitempty"`
	Location  *models.Coordinate `json:"location,omitempty"`
}
