package present

import (
	"io"

	"github.com/xuri/excelize/v2"
	"recycle.ecomap.kr/internal/ranking"
)

const exportSheet = "가까운 수거함"

var exportHeader = []interface{}{"순위", "설치장소명", "소재지도로명주소", "상세위치", "위도", "경도", "거리(m)"}

// WriteXLSX writes the ranked bins to w as a single-sheet workbook.
func WriteXLSX(w io.Writer, res *ranking.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(exportSheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(exportSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", exportHeader); err != nil {
		return err
	}
	for i, e := range res.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.Rank, e.Bin.Name, e.Bin.Address, e.Bin.Detail,
			e.Bin.Latitude, e.Bin.Longitude, e.DisplayMeters(),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
