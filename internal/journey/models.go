package journey

import "time"

type Journey struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Distance  *float64   `json:"distance"`
	AvgSpeed  *float64   `json:"avg_speed"`
}

type Coordinate struct {
	ID                 int64     `json:"id"`
	JourneyID          string    `json:"journey_id"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Timestamp          time.Time `json:"timestamp"`
	Heading            *int      `json:"heading"`
	HorizontalAccuracy *float64  `json:"horizontal_accuracy"`
}

// Frame is what live stream subscribers of a journey receive.
type Frame struct {
	Type       string      `json:"type"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	Journey    *Journey    `json:"journey,omitempty"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}
