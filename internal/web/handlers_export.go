package web

import (
	"net/http"

	"github.com/poskit/backoffice/internal/catalog"
	"github.com/poskit/backoffice/internal/importer"
	"github.com/poskit/backoffice/internal/logging"
)

// handleExport streams the product catalog as a spreadsheet. The output uses
// the same column set the importer reads, so a downloaded file can be edited
// and uploaded back. Query parameters mirror the product list filters;
// format selects csv (default) or xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := s.service.AdminProducts(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	cats, err := s.service.Categories(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	mans, err := s.service.Manufacturers(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	query := catalog.ProductQuery{
		Search:         q.Get("search"),
		CategoryID:     q.Get("category"),
		ManufacturerID: q.Get("manufacturer"),
		VisibleOnly:    q.Get("visible") == "true",
		InStockOnly:    q.Get("in_stock") == "true",
		SortBy:         q.Get("sort"),
	}
	if q.Get("dir") == "desc" {
		query.SortDir = catalog.SortDesc
	}

	rows, err := importer.Project(catalog.FilterProducts(products, query), cats, mans)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	switch q.Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
		err = importer.WriteXLSX(w, rows)
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
		err = importer.WriteCSV(w, rows)
	default:
		writeError(w, r, http.StatusBadRequest, "unsupported format, want csv or xlsx")
		return
	}
	if err != nil {
		// Headers are already written; all we can do is log.
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}
