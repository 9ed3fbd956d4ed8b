package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"recycle.ecomap.kr/internal/geo"
	"recycle.ecomap.kr/internal/models"
)

// Column names agreed with the data provider. Matching is exact and case-sensitive.
const (
	ColumnName      = "설치장소명"
	ColumnAddress   = "소재지도로명주소"
	ColumnLatitude  = "위도"
	ColumnLongitude = "경도"
	ColumnDetail    = "상세위치"
)

// RequiredColumns must all be present in a source table.
var RequiredColumns = []string{ColumnName, ColumnAddress, ColumnLatitude, ColumnLongitude}

// ErrMissingColumns is matched by errors.Is for any *MissingColumnsError.
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError names the required columns absent from a table.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// ValidationResult holds the surviving records in source order.
type ValidationResult struct {
	Records     []models.BinRecord
	TotalRows   int
	DroppedRows int
}

// ValidateTable converts a raw table into bin records.
//
// A missing required column fails the whole table. Rows whose name is blank or
// whose latitude/longitude is empty, non-numeric, non-finite or out of range are
// dropped and only counted. An empty result is not an error.
func ValidateTable(table *models.RawTable) (*ValidationResult, error) {
	var missing []string
	for _, col := range RequiredColumns {
		if table.Column(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	nameIdx := table.Column(ColumnName)
	addrIdx := table.Column(ColumnAddress)
	latIdx := table.Column(ColumnLatitude)
	lonIdx := table.Column(ColumnLongitude)
	detailIdx := table.Column(ColumnDetail)

	result := &ValidationResult{TotalRows: len(table.Rows)}
	for i, row := range table.Rows {
		lat, ok := parseCoord(row[latIdx])
		if !ok {
			continue
		}
		lon, ok := parseCoord(row[lonIdx])
		if !ok {
			continue
		}
		if !geo.IsValidLatLon(lat, lon) {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		if name == "" {
			continue
		}

		detail := models.NoDetail
		if detailIdx >= 0 {
			if d := strings.TrimSpace(row[detailIdx]); d != "" {
				detail = d
			}
		}

		result.Records = append(result.Records, models.BinRecord{
			Name:      name,
			Address:   strings.TrimSpace(row[addrIdx]),
			Latitude:  lat,
			Longitude: lon,
			Detail:    detail,
			Row:       i + 1,
		})
	}
	result.DroppedRows = result.TotalRows - len(result.Records)
	return result, nil
}

func parseCoord(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
