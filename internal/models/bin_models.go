package models

import "math"

// NoDetail is the detail text used for bins whose source carries no detail-location column.
const NoDetail = "상세정보 없음"

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsFinite reports whether both components are finite numbers.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}

// BinRecord represents one clothing collection bin.
// Records are built once per load and never modified afterwards.
type BinRecord struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Detail    string  `json:"detail"`
	// Row is the 1-based data row in the source, header excluded.
	Row int `json:"-"`
}

// Coordinate returns the bin position.
func (b BinRecord) Coordinate() Coordinate {
	return Coordinate{Latitude: b.Latitude, Longitude: b.Longitude}
}

// Provenance tells where a reference point came from.
type Provenance string

const (
	LiveGeolocation Provenance = "live_geolocation"
	NamedLandmark   Provenance = "named_landmark"
)

// ReferencePoint is the coordinate distances are measured from.
// Landmark is set only for NamedLandmark points.
type ReferencePoint struct {
	Coordinate
	Provenance Provenance `json:"provenance"`
	Landmark   string     `json:"landmark,omitempty"`
}

// RankedEntry is a bin with its distance from the reference point.
type RankedEntry struct {
	Bin            BinRecord
	DistanceMeters float64
	Rank           int
}

// DisplayMeters truncates the distance for presentation.
func (e RankedEntry) DisplayMeters() int {
	return int(math.Floor(e.DistanceMeters))
}

// Landmark is one entry of the static landmark table.
type Landmark struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawTable is a decoded delimited table before schema validation.
// Every row has exactly len(Header) cells.
type RawTable struct {
	Header   []string
	Rows     [][]string
	Encoding string
}

// Column returns the index of the named header, or -1.
func (t *RawTable) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Dataset is the validated, cacheable result of one load cycle.
type Dataset struct {
	Fingerprint string
	Source      string
	Encoding    string
	Records     []BinRecord
	TotalRows   int
	DroppedRows int
}

// NewDataset copies records so later changes to the slice passed in cannot leak into the cache.
func NewDataset(fingerprint, source, encoding string, records []BinRecord, totalRows int) *Dataset {
	return &Dataset{
		Fingerprint: fingerprint,
		Source:      source,
		Encoding:    encoding,
		Records:     append([]BinRecord(nil), records...),
		TotalRows:   totalRows,
		DroppedRows: totalRows - len(records),
	}
}
