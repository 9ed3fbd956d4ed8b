package reference

import (
	"recycle.ecomap.kr/internal/geo"
	"recycle.ecomap.kr/internal/models"
)

// DefaultLandmark is the district office. It is the point of last resort and
// does not depend on any configured table.
var DefaultLandmark = models.Landmark{Name: "서초구청 (기본)", Latitude: 37.483574, Longitude: 127.032692}

// SeochoLandmarks is the built-in landmark table in display order.
var SeochoLandmarks = []models.Landmark{
	DefaultLandmark,
	{Name: "강남역", Latitude: 37.498095, Longitude: 127.027610},
	{Name: "교대역", Latitude: 37.493968, Longitude: 127.014658},
	{Name: "고속터미널", Latitude: 37.504914, Longitude: 127.004915},
	{Name: "양재역", Latitude: 37.484147, Longitude: 127.034631},
	{Name: "방배역", Latitude: 37.481533, Longitude: 126.997637},
}

// Table is an immutable landmark table with a designated default entry.
type Table struct {
	landmarks []models.Landmark
	index     map[string]int
	def       models.Landmark
}

// NewTable builds a table from landmarks, falling back to SeochoLandmarks when
// none are given. Entries without a name, with unusable coordinates or with a
// repeated name are skipped.
//
// The default is the entry named defaultName. If there is no such entry the
// first landmark is used, and DefaultLandmark when the table ends up empty.
func NewTable(landmarks []models.Landmark, defaultName string) *Table {
	if len(landmarks) == 0 {
		landmarks = SeochoLandmarks
	}

	t := &Table{index: make(map[string]int, len(landmarks))}
	for _, lm := range landmarks {
		if lm.Name == "" || !geo.IsValidLatLon(lm.Latitude, lm.Longitude) {
			continue
		}
		if _, dup := t.index[lm.Name]; dup {
			continue
		}
		t.index[lm.Name] = len(t.landmarks)
		t.landmarks = append(t.landmarks, lm)
	}

	switch {
	case defaultName != "" && t.has(defaultName):
		t.def = t.landmarks[t.index[defaultName]]
	case len(t.landmarks) > 0:
		t.def = t.landmarks[0]
	default:
		t.def = DefaultLandmark
	}
	return t
}

func (t *Table) has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Lookup returns the landmark with the exact given name.
func (t *Table) Lookup(name string) (models.Landmark, bool) {
	i, ok := t.index[name]
	if !ok {
		return models.Landmark{}, false
	}
	return t.landmarks[i], true
}

// Landmarks returns a copy of the table in display order.
func (t *Table) Landmarks() []models.Landmark {
	return append([]models.Landmark(nil), t.landmarks...)
}

func (t *Table) Default() models.Landmark {
	return t.def
}
