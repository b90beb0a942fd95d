// README: Geohash spatial keys and great-circle distance helpers.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"hailer/internal/types"
)

// EarthRadiusKm is the mean spherical radius. Haversine on a sphere is a
// deliberate accuracy/cost tradeoff: metre-level error at ride-hailing
// distances, nowhere near surveying-grade.
const EarthRadiusKm = 6371.0

const (
	// MaxPrecision is the finest geohash length this service stores.
	MaxPrecision uint = 12
	// CellPrecision is the length at which driver positions are indexed.
	CellPrecision uint = 7
	// ZonePrecision is the coarser length used for density and surge.
	ZonePrecision uint = 5
)

// Encode returns the base-32 geohash of p at the given precision (1..12).
// Nearby points share longer common prefixes.
func Encode(p types.Point, precision uint) string {
	if precision < 1 {
		precision = 1
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, precision)
}

// Zone returns the coarse key used for zone-level aggregation.
func Zone(p types.Point) string {
	return Encode(p, ZonePrecision)
}

// PrecisionForRadius maps a search radius onto a geohash precision whose
// cells are at least that wide. Coarser key for larger radius.
func PrecisionForRadius(radiusKm float64) uint {
	switch {
	case radiusKm <= 1:
		return 7
	case radiusKm <= 5:
		return 6
	case radiusKm <= 20:
		return 5
	default:
		return 4
	}
}

// CoverKeys returns the geohash cells at the radius-matched precision
// whose union contains every point within radiusKm of center. The walk
// steps across the radius bounding box in cell-sized increments, so no
// cell overlapping the circle is missed. Prefix containment is a coarse
// filter only; callers must verify true distance with HaversineKm.
func CoverKeys(center types.Point, radiusKm float64) []string {
	precision := PrecisionForRadius(radiusKm)
	centerKey := Encode(center, precision)

	box := geohash.BoundingBox(centerKey)
	cellLat := box.MaxLat - box.MinLat
	cellLng := box.MaxLng - box.MinLng

	// Degrees subtended by the radius; longitude shrinks with latitude.
	latDelta := radiusKm / 110.574
	cosLat := math.Cos(degreesToRadians(center.Lat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDelta := radiusKm / (111.320 * cosLat)

	seen := make(map[string]struct{})
	keys := []string{centerKey}
	seen[centerKey] = struct{}{}

	for lat := center.Lat - latDelta; lat <= center.Lat+latDelta+cellLat; lat += cellLat {
		for lng := center.Lng - lngDelta; lng <= center.Lng+lngDelta+cellLng; lng += cellLng {
			k := Encode(types.Point{Lat: clampLat(lat), Lng: wrapLng(lng)}, precision)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func clampLat(lat float64) float64 {
	if lat > 90 {
		return 90
	}
	if lat < -90 {
		return -90
	}
	return lat
}

func wrapLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
