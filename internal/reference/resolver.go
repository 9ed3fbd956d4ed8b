package reference

import "recycle.ecomap.kr/internal/models"

var seocho = NewTable(nil, DefaultLandmark.Name)

// Resolve picks the reference point from the built-in Seocho table.
func Resolve(live *models.Coordinate, landmarkKey string) models.ReferencePoint {
	return seocho.Resolve(live, landmarkKey)
}

// Resolve picks the point distances are measured from. It never fails.
//
// A live coordinate with finite components always wins. Otherwise a known
// landmark key selects that landmark, and anything else gets the table default.
func (t *Table) Resolve(live *models.Coordinate, landmarkKey string) models.ReferencePoint {
	if live != nil && live.IsFinite() {
		return models.ReferencePoint{Coordinate: *live, Provenance: models.LiveGeolocation}
	}

	lm, ok := t.Lookup(landmarkKey)
	if !ok {
		lm = t.Default()
	}
	return models.ReferencePoint{
		Coordinate: models.Coordinate{Latitude: lm.Latitude, Longitude: lm.Longitude},
		Provenance: models.NamedLandmark,
		Landmark:   lm.Name,
	}
}
