package present

import (
	"fmt"

	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/navigation"
	"recycle.ecomap.kr/internal/ranking"
)

// Entry is one ranked bin as returned to clients.
type Entry struct {
	Rank           int              `json:"rank"`
	Name           string           `json:"name"`
	Address        string           `json:"address"`
	Detail         string           `json:"detail"`
	Latitude       float64          `json:"latitude"`
	Longitude      float64          `json:"longitude"`
	DistanceMeters int              `json:"distance_meters"`
	Label          string           `json:"label"`
	Links          navigation.Links `json:"links"`
}

type DatasetInfo struct {
	Fingerprint string `json:"fingerprint"`
	TotalRows   int    `json:"total_rows"`
	DroppedRows int    `json:"dropped_rows"`
}

// Response is the body of a ranking request.
type Response struct {
	ReferencePoint models.ReferencePoint `json:"reference_point"`
	Results        []Entry               `json:"results"`
	Dataset        DatasetInfo           `json:"dataset"`
}

// Label is the list-card and marker caption, distance truncated to whole meters.
func Label(e models.RankedEntry) string {
	return fmt.Sprintf("%s (%dm)", e.Bin.Name, e.DisplayMeters())
}

func NewEntry(e models.RankedEntry) Entry {
	return Entry{
		Rank:           e.Rank,
		Name:           e.Bin.Name,
		Address:        e.Bin.Address,
		Detail:         e.Bin.Detail,
		Latitude:       e.Bin.Latitude,
		Longitude:      e.Bin.Longitude,
		DistanceMeters: e.DisplayMeters(),
		Label:          Label(e),
		Links:          navigation.ForBin(e.Bin),
	}
}

func NewResponse(res *ranking.Result) Response {
	entries := make([]Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, NewEntry(e))
	}
	return Response{
		ReferencePoint: res.Point,
		Results:        entries,
		Dataset: DatasetInfo{
			Fingerprint: res.Fingerprint,
			TotalRows:   res.TotalRows,
			DroppedRows: res.DroppedRows,
		},
	}
}
