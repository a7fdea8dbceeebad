// Package types contains common types used across the application.
package types

// Entry represents one row of the ranking read view. Because every assigned
// score is globally unique, ranks are strict: no two items ever tie.
type Entry struct {
	Rank             int     `json:"rank"`
	Image            string  `json:"image"`
	GlobalAverage    float64 `json:"global_average"`
	ClassicalAverage float64 `json:"classical_average"`
	Ratings          int     `json:"ratings"`
}
