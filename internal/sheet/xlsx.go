package sheet

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

func writeXLSX(w io.Writer, sheetName string, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "sheet: add worksheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		c := hr.AddCell()
		c.SetString(h)
		c.GetStyle().Font.Bold = true
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for _, v := range r {
			xr.AddCell().SetString(v)
		}
	}

	return eris.Wrap(f.Write(w), "sheet: write xlsx")
}
