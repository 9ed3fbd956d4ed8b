package ranking

import (
	"errors"
	"fmt"
	"sort"

	"recycle.ecomap.kr/internal/geo"
	"recycle.ecomap.kr/internal/models"
)

// ErrInvalidReferencePoint is matched by errors.Is for any *InvalidReferencePointError.
var ErrInvalidReferencePoint = errors.New("invalid reference point")

type InvalidReferencePointError struct {
	Point models.Coordinate
}

func (e *InvalidReferencePointError) Error() string {
	return fmt.Sprintf("invalid reference point (%v, %v)", e.Point.Latitude, e.Point.Longitude)
}

func (e *InvalidReferencePointError) Is(target error) bool {
	return target == ErrInvalidReferencePoint
}

// Rank orders records by WGS-84 geodesic distance from point and keeps the
// first topN. Equal distances keep their source order. Distances are compared
// at full precision; rounding is left to presentation.
//
// A point that is not a finite, in-range coordinate is rejected. An empty
// records slice gives an empty, non-nil result, as does topN < 1.
func Rank(point models.ReferencePoint, records []models.BinRecord, topN int) ([]models.RankedEntry, error) {
	if !point.IsFinite() || !geo.IsValidLatLon(point.Latitude, point.Longitude) {
		return nil, &InvalidReferencePointError{Point: point.Coordinate}
	}
	if len(records) == 0 || topN < 1 {
		return []models.RankedEntry{}, nil
	}

	entries := make([]models.RankedEntry, len(records))
	for i, r := range records {
		entries[i] = models.RankedEntry{
			Bin:            r,
			DistanceMeters: geo.Distance(point.Coordinate, r.Coordinate()),
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DistanceMeters < entries[j].DistanceMeters
	})

	if topN < len(entries) {
		entries = entries[:topN]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
