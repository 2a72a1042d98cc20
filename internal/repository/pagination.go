package repository

// Page represents a simple limit/offset window for listing operations.
// The grid query path carries richer state in query.PageState; this stays
// for flat listings such as a vehicle's audit trail.
type Page struct {
	Limit  int
	Offset int
}

// DefaultListLimit caps listing windows when the caller passes a
// non-positive limit. Every implementation clamps to it, so the stores
// stay interchangeable at that edge.
const DefaultListLimit = 50

// PageResult carries a slice of items and the total count matching the query.
// I return the total so clients can compute pagination without an extra round trip.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
