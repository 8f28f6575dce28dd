package importer

// parser.go converts one tabular row into either a validated product record
// or a list of rejection reasons. It never returns an error for bad data;
// bad data is a rejection, not a failure.
//
// Validation order:
//  1. All six required fields present, or one reason listing every missing
//     field and nothing else is checked.
//  2. Remaining checks accumulate reasons instead of short-circuiting, so a
//     rejected row reports everything wrong with it at once.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/poskit/backoffice/internal/catalog"
)

// ParsedRow is the successful result of parsing one row.
type ParsedRow struct {
	Record catalog.Product
	// Warning is set for rows that imported without any size data.
	Warning string
}

// ParseRow validates one data row against the catalog index. On success the
// reasons slice is empty and ParsedRow carries the record; otherwise the
// reasons explain the rejection, in check order. Pure function: no I/O, no
// mutation of the index.
func ParseRow(t *Table, row []string, idx *CatalogIndex) (ParsedRow, []string) {
	// Required fields first. If any are missing the row is rejected with a
	// single reason naming all of them and no further validation runs.
	var missing []string
	for _, col := range requiredColumns {
		if t.Cell(row, col) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return ParsedRow{}, []string{"missing required fields: " + strings.Join(missing, ", ")}
	}

	var reasons []string
	record := catalog.Product{
		Title: t.Cell(row, ColTitle),
		Code:  t.Cell(row, ColCode),
		Image: t.Cell(row, ColImageURL),
	}

	categoryName := t.Cell(row, ColCategory)
	if id, ok := idx.CategoryID(categoryName); ok {
		record.CategoryID = id
	} else {
		reasons = append(reasons, fmt.Sprintf("unknown category %q", categoryName))
	}

	manufacturerName := t.Cell(row, ColManufacturer)
	if id, ok := idx.ManufacturerID(manufacturerName); ok {
		record.ManufacturerID = id
	} else {
		reasons = append(reasons, fmt.Sprintf("unknown manufacturer %q", manufacturerName))
	}

	rawPrice := t.Cell(row, ColPrice)
	price, err := strconv.ParseFloat(rawPrice, 64)
	switch {
	case err != nil:
		reasons = append(reasons, fmt.Sprintf("price %q is not a number", rawPrice))
	case price <= 0:
		reasons = append(reasons, fmt.Sprintf("price must be greater than zero, got %s", rawPrice))
	default:
		record.Price = price
	}

	sizes, warning, sizeReasons := parseSizes(t, row)
	reasons = append(reasons, sizeReasons...)
	record.Sizes = sizes

	record.IsVisible = parseVisibility(t.Cell(row, ColIsVisible))

	if len(reasons) > 0 {
		return ParsedRow{}, reasons
	}
	return ParsedRow{Record: record, Warning: warning}, nil
}

// parseSizes resolves the size/stock list using three mutually exclusive
// strategies, in priority order:
//
//  1. SizesStockJSON: a serialized array of {size, stock} pairs.
//  2. Sizes + Stocks: parallel comma-delimited lists, zipped positionally.
//  3. TotalStock or Stock: a single aggregate, recorded under "One Size".
//
// When none yields data, the row still imports with no sellable variants
// and a warning instead of a rejection.
func parseSizes(t *Table, row []string) ([]catalog.SizeStock, string, []string) {
	// Strategy 1: structured payload. Once present it must be fully valid;
	// later strategies are not consulted as fallbacks.
	if raw := t.Cell(row, ColSizesJSON); raw != "" {
		sizes, err := ParseSizesPayload(raw)
		if err != nil {
			return nil, "", []string{fmt.Sprintf("malformed %s: %v", ColSizesJSON, err)}
		}
		return sizes, "", nil
	}

	// Strategy 2: parallel comma lists. Fail fast at the first positional
	// failure; a length mismatch is reported before any element check.
	rawSizes := t.Cell(row, ColSizes)
	rawStocks := t.Cell(row, ColStocks)
	if rawSizes != "" && rawStocks != "" {
		names := splitList(rawSizes)
		stocks := splitList(rawStocks)
		if len(names) != len(stocks) {
			return nil, "", []string{fmt.Sprintf("%s has %d entries but %s has %d",
				ColSizes, len(names), ColStocks, len(stocks))}
		}
		out := make([]catalog.SizeStock, 0, len(names))
		for i := range names {
			if names[i] == "" {
				return nil, "", []string{fmt.Sprintf("size name %d is empty", i+1)}
			}
			stock, err := strconv.Atoi(stocks[i])
			if err != nil {
				return nil, "", []string{fmt.Sprintf("stock %q for size %q is not an integer", stocks[i], names[i])}
			}
			if stock < 0 {
				return nil, "", []string{fmt.Sprintf("stock for size %q is negative", names[i])}
			}
			out = append(out, catalog.SizeStock{Size: names[i], Stock: stock})
		}
		return out, "", nil
	}

	// Strategy 3: aggregate stock under either column name.
	raw := t.Cell(row, ColTotalStock)
	if raw == "" {
		raw = t.Cell(row, ColStock)
	}
	if raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return nil, "", []string{fmt.Sprintf("stock %q is not an integer", raw)}
		}
		if stock < 0 {
			return nil, "", []string{"stock must not be negative"}
		}
		return []catalog.SizeStock{{Size: OneSizeName, Stock: stock}}, "", nil
	}

	return nil, "no size or stock data; product will have no sellable variants", nil
}

// ParseSizesPayload decodes the structured size/stock payload used by the
// SizesStockJSON column and produced by the export projection.
func ParseSizesPayload(raw string) ([]catalog.SizeStock, error) {
	var sizes []catalog.SizeStock
	if err := json.Unmarshal([]byte(raw), &sizes); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	for i, s := range sizes {
		if strings.TrimSpace(s.Size) == "" {
			return nil, fmt.Errorf("entry %d has an empty size name", i+1)
		}
		if s.Stock < 0 {
			return nil, fmt.Errorf("entry %d has negative stock", i+1)
		}
	}
	return sizes, nil
}

// parseVisibility maps the Is Visible column to a flag. "yes"/"true" and
// "no"/"false" (any case) are the recognized tokens; absence or an
// unrecognized token leaves the product visible. The default must stay
// true, not false: the column is usually absent and an import must never
// hide products by accident.
func parseVisibility(raw string) bool {
	switch strings.ToLower(raw) {
	case "no", "false":
		return false
	default:
		return true
	}
}

// splitList splits a comma-delimited cell and trims each element.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
