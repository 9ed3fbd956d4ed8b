package geo

import (
	"math"

	"github.com/tidwall/geodesic"
	"recycle.ecomap.kr/internal/models"
)

// Distance returns the geodesic distance in meters between a and b on the WGS-84 ellipsoid.
//
// The inverse problem is solved with Karney's algorithm, which converges for every
// pair of points including nearly antipodal ones. Coordinates outside the valid
// range make the solution undefined; the spherical distance is returned for those.
func Distance(a, b models.Coordinate) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &s12, nil, nil)
	if math.IsNaN(s12) || math.IsInf(s12, 0) {
		return GreatCircleDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	return s12
}
