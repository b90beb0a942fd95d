// README: Common identifiers and geographic primitives shared across modules.
package types

// ID identifies a driver, rider, or allocation request.
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
