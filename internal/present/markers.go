package present

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"recycle.ecomap.kr/internal/geo"
	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/ranking"
)

// UserMarkerLabel captions the reference point marker.
const UserMarkerLabel = "내 위치"

// Marker kinds.
const (
	MarkerUser = "user"
	MarkerBin  = "bin"
)

// MarkersGeoJSON renders the reference point and the ranked bins as point
// features for a map widget. The collection bbox covers every marker.
func MarkersGeoJSON(res *ranking.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	user := geojson.NewFeature(toPoint(res.Point.Coordinate))
	user.Properties["kind"] = MarkerUser
	user.Properties["label"] = UserMarkerLabel
	user.Properties["provenance"] = string(res.Point.Provenance)
	if res.Point.Landmark != "" {
		user.Properties["landmark"] = res.Point.Landmark
	}
	fc.Append(user)

	coords := []models.Coordinate{res.Point.Coordinate}
	for _, e := range res.Entries {
		f := geojson.NewFeature(toPoint(e.Bin.Coordinate()))
		f.Properties["kind"] = MarkerBin
		f.Properties["rank"] = e.Rank
		f.Properties["name"] = e.Bin.Name
		f.Properties["label"] = Label(e)
		f.Properties["address"] = e.Bin.Address
		f.Properties["detail"] = e.Bin.Detail
		f.Properties["distance_meters"] = e.DisplayMeters()
		fc.Append(f)
		coords = append(coords, e.Bin.Coordinate())
	}

	if box, err := geo.ComputeBoundingBox(coords); err == nil {
		fc.BBox = geojson.NewBBox(orb.Bound{
			Min: orb.Point{box.MinLon, box.MinLat},
			Max: orb.Point{box.MaxLon, box.MaxLat},
		})
	}
	return fc
}

func toPoint(c models.Coordinate) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}
