package types

import "time"

// MeteringInterval holds one metering point's readings over a date range.
type MeteringInterval struct {
	MeteringPointID string
	Unit            string
	Periods         []Period
}

type Period struct {
	Start      time.Time
	End        time.Time
	Resolution string // ISO 8601 duration, e.g. "PT1H" or "PT15M"
	Points     []Point
}

// Point is one sub-interval reading. Position is 1-based and Quantity is kept
// as the decimal text the provider sent.
type Point struct {
	Position string
	Quantity string
	Quality  string
}
