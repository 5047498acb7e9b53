package models

import "time"

// Launch is a scheduled or historical rocket flight. FlightNumber is the
// only identifier used for lookup, upsert and abort.
type Launch struct {
	FlightNumber int       `json:"flightNumber" bson:"flightNumber"`
	Mission      string    `json:"mission" bson:"mission"`
	Rocket       string    `json:"rocket" bson:"rocket"`
	LaunchDate   time.Time `json:"launchDate" bson:"launchDate"`
	Target       string    `json:"target,omitempty" bson:"target"`
	Customers    []string  `json:"customers" bson:"customers"`
	Upcoming     bool      `json:"upcoming" bson:"upcoming"`
	Success      bool      `json:"success" bson:"success"`
}

// Aborted reports whether the launch is in the aborted state.
func (l *Launch) Aborted() bool {
	return !l.Upcoming && !l.Success
}
