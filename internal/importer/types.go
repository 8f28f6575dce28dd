// Package importer implements the catalog import/reconciliation engine and
// its inverse, the export projection.
//
// One import pass reads a tabular file (CSV or XLSX), validates each row
// against a catalog snapshot, and reconciles it against the existing product
// list by code: known codes become updates, unknown codes become inserts,
// invalid rows are rejected with accumulated reasons. A row failure never
// aborts the pass; the caller always gets a full per-row report.
package importer

import (
	"strconv"
	"time"
)

// Recognized column headers. Matching is case-insensitive.
const (
	ColTitle        = "Title"
	ColCode         = "Code"
	ColPrice        = "Price"
	ColCategory     = "Category"
	ColManufacturer = "Manufacturer"
	ColImageURL     = "Image URL"
	ColSizesJSON    = "SizesStockJSON"
	ColSizes        = "Sizes"
	ColStocks       = "Stocks"
	ColTotalStock   = "TotalStock"
	ColStock        = "Stock"
	ColIsVisible    = "Is Visible"
)

// requiredColumns must be present and non-empty in every data row.
var requiredColumns = []string{ColTitle, ColCode, ColPrice, ColCategory, ColManufacturer, ColImageURL}

// exportColumns is the full header written by the export projection and
// accepted by the import reader.
var exportColumns = []string{
	ColTitle, ColCode, ColPrice, ColCategory, ColManufacturer,
	ColImageURL, ColSizesJSON, ColIsVisible,
}

// OneSizeName is the sentinel size synthesized when a row carries only an
// aggregate stock number.
const OneSizeName = "One Size"

// OutcomeKind classifies what happened to one row.
type OutcomeKind string

const (
	OutcomeInserted OutcomeKind = "inserted"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeRejected OutcomeKind = "rejected"
)

// RowOutcome is the reconciliation result for a single data row.
// Row is the 1-based spreadsheet row number: data row i (0-based) is
// reported as row i+2 to account for the header row.
type RowOutcome struct {
	Row     int         `json:"row"`
	Code    string      `json:"code,omitempty"`
	Kind    OutcomeKind `json:"kind"`
	Reasons []string    `json:"reasons,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// PassCondition is the aggregate classification of a whole pass.
type PassCondition string

const (
	// ConditionEmptyInput means the file had a header but zero data rows.
	ConditionEmptyInput PassCondition = "empty_input"
	// ConditionSuccess means every row was inserted or updated.
	ConditionSuccess PassCondition = "success"
	// ConditionPartialSuccess means a mix of successes and rejections.
	ConditionPartialSuccess PassCondition = "partial_success"
	// ConditionTotalFailure means every row was rejected.
	ConditionTotalFailure PassCondition = "total_failure"
)

// Report is the aggregate result of one import pass.
type Report struct {
	PassID    string        `json:"passId"`
	FileName  string        `json:"fileName,omitempty"`
	TotalRows int           `json:"totalRows"`
	Inserted  int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Rejected  int           `json:"rejected"`
	Condition PassCondition `json:"condition"`
	Outcomes  []RowOutcome  `json:"outcomes"`
	Duration  time.Duration `json:"duration"`
}

// Details returns the rejection detail strings in row order.
func (r *Report) Details() []string {
	var details []string
	for _, o := range r.Outcomes {
		if o.Kind != OutcomeRejected {
			continue
		}
		for _, reason := range o.Reasons {
			details = append(details, formatDetail(o.Row, reason))
		}
	}
	return details
}

// classify derives the pass condition from the counters.
func (r *Report) classify() {
	switch {
	case r.TotalRows == 0:
		r.Condition = ConditionEmptyInput
	case r.Inserted+r.Updated == 0:
		r.Condition = ConditionTotalFailure
	case r.Rejected > 0:
		r.Condition = ConditionPartialSuccess
	default:
		r.Condition = ConditionSuccess
	}
}

func formatDetail(row int, reason string) string {
	return "row " + strconv.Itoa(row) + ": " + reason
}
