package domain

// Waypoint is one step of an escape route.
type Waypoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Destination describes the safe node an escape route ends at.
type Destination struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	FSI float64 `json:"fsi"`
}

// EscapeRoute is an ordered path from a start location to the nearest
// safe node. Immutable once returned by the router; a nil *EscapeRoute
// means no safe node was reachable.
type EscapeRoute struct {
	Waypoints   []Waypoint  `json:"waypoints"`
	Destination Destination `json:"destination"`
	LengthM     float64     `json:"length_m"` // penalized cost, not ground distance
}
