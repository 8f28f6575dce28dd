package importer

// export.go is the inverse of the parser: it projects an in-memory product
// list into flat tabular rows. SizesStockJSON is always written in the
// structured form the parser's first strategy consumes, so exporting and
// re-importing an unmodified file reproduces the same records (as updates,
// since every code already exists).

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/poskit/backoffice/internal/catalog"
	"github.com/xuri/excelize/v2"
)

// Project maps products to export rows, header first. Category and
// manufacturer ids are rendered as names; an id that no longer resolves is
// rendered empty rather than dropping the row.
func Project(products []catalog.Product, cats []catalog.Category, mans []catalog.Manufacturer) ([][]string, error) {
	catNames := make(map[string]string, len(cats))
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}
	manNames := make(map[string]string, len(mans))
	for _, m := range mans {
		manNames[m.ID] = m.Name
	}

	rows := make([][]string, 0, len(products)+1)
	rows = append(rows, append([]string(nil), exportColumns...))

	for _, p := range products {
		payload, err := MarshalSizesPayload(p.Sizes)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.Code, err)
		}

		visible := "yes"
		if !p.IsVisible {
			visible = "no"
		}

		rows = append(rows, []string{
			p.Title,
			p.Code,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			catNames[p.CategoryID],
			manNames[p.ManufacturerID],
			p.Image,
			payload,
			visible,
		})
	}
	return rows, nil
}

// MarshalSizesPayload serializes a size list into the canonical
// SizesStockJSON form. A nil list serializes as an empty array so the
// payload column is never blank.
func MarshalSizesPayload(sizes []catalog.SizeStock) (string, error) {
	if sizes == nil {
		sizes = []catalog.SizeStock{}
	}
	data, err := json.Marshal(sizes)
	if err != nil {
		return "", fmt.Errorf("encode sizes payload: %w", err)
	}
	return string(data), nil
}

// WriteCSV writes rows as CSV.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows as a single-sheet workbook named Products.
func WriteXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Products"
	f.SetSheetName("Sheet1", sheet)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet coordinates: %w", err)
		}
		// SetSheetRow wants a []interface{} slice
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write sheet row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
