// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank     int     `json:"rank"`
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}
