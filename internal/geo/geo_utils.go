package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"recycle.ecomap.kr/internal/models"
)

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ComputeBoundingBox computes the smallest box holding every valid coordinate.
// Invalid coordinates are skipped.
func ComputeBoundingBox(points []models.Coordinate) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("no points to compute bounding box")
	}

	var mp orb.MultiPoint
	for _, p := range points {
		if !IsValidLatLon(p.Latitude, p.Longitude) {
			continue
		}
		mp = append(mp, orb.Point{p.Longitude, p.Latitude})
	}

	if len(mp) == 0 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in points")
	}

	bound := mp.Bound()
	return BoundingBox{
		MinLat: bound.Min.Lat(),
		MaxLat: bound.Max.Lat(),
		MinLon: bound.Min.Lon(),
		MaxLon: bound.Max.Lon(),
	}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// are finite and fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusInMeters represents the mean radius of the Earth in meters.
//
// This value (6,371,000 meters) is defined as the Earth's volumetric mean radius,
// which is commonly used for general geospatial calculations and spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// GreatCircleDistance returns the spherical surface distance in meters.
// Distance falls back to it when the ellipsoidal solution is undefined.
func GreatCircleDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}
