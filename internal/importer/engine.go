package importer

// engine.go drives one full import pass: build the catalog index once, walk
// the rows in input order, and issue insert/update mutations strictly
// sequentially. Sequencing is deliberate: a later row observes earlier rows
// only through the pre-built static index, so two rows introducing the same
// new code both attempt an insert. That edge case is documented behaviour,
// not a bug to fix here.

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/poskit/backoffice/internal/catalog"
	"github.com/poskit/backoffice/internal/logging"
)

// ProductWriter is the slice of the data-access layer the engine mutates
// through.
type ProductWriter interface {
	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
}

// CatalogService combines the reads the index needs with the writes the
// engine issues. *client.Client satisfies it.
type CatalogService interface {
	CatalogFetcher
	ProductWriter
}

// Engine runs import passes against a catalog service.
type Engine struct {
	service CatalogService
}

// NewEngine creates an Engine.
func NewEngine(service CatalogService) *Engine {
	return &Engine{service: service}
}

// Run executes one pass over the table. The returned error is non-nil only
// when the catalog snapshot cannot be fetched; everything that goes wrong
// with individual rows is reported inside the Report instead.
func (e *Engine) Run(ctx context.Context, table *Table, fileName string) (*Report, error) {
	start := time.Now()

	report := &Report{
		PassID:   uuid.NewString(),
		FileName: fileName,
	}
	log := logging.WithFields(ctx, "pass_id", report.PassID, "file", fileName)

	// One snapshot per pass. Mutations below never refresh it.
	idx, err := BuildCatalogIndex(ctx, e.service)
	if err != nil {
		return nil, err
	}

	log.Info("import pass started", "rows", len(table.Rows))

	for i, row := range table.Rows {
		if IsEmptyRow(row) {
			continue
		}
		// Data row i is spreadsheet row i+2: rows are 1-based and the
		// header occupies row 1.
		lineNum := i + 2
		report.TotalRows++

		parsed, reasons := ParseRow(table, row, idx)
		if len(reasons) > 0 {
			report.Rejected++
			report.Outcomes = append(report.Outcomes, RowOutcome{
				Row:     lineNum,
				Code:    table.Cell(row, ColCode),
				Kind:    OutcomeRejected,
				Reasons: reasons,
			})
			continue
		}

		outcome := e.reconcile(ctx, idx, parsed, lineNum)
		switch outcome.Kind {
		case OutcomeInserted:
			report.Inserted++
		case OutcomeUpdated:
			report.Updated++
		case OutcomeRejected:
			report.Rejected++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Duration = time.Since(start)
	report.classify()

	log.Info("import pass finished",
		"condition", string(report.Condition),
		"inserted", report.Inserted,
		"updated", report.Updated,
		"rejected", report.Rejected,
		"duration", report.Duration,
	)
	return report, nil
}

// reconcile issues the mutation for one validated row. A service failure
// becomes that row's rejection reason; it never aborts the pass.
func (e *Engine) reconcile(ctx context.Context, idx *CatalogIndex, parsed ParsedRow, lineNum int) RowOutcome {
	outcome := RowOutcome{
		Row:     lineNum,
		Code:    parsed.Record.Code,
		Warning: parsed.Warning,
	}

	if existing, ok := idx.ProductByCode(parsed.Record.Code); ok {
		record := parsed.Record
		record.ID = existing.ID
		if _, err := e.service.UpdateProduct(ctx, record); err != nil {
			outcome.Kind = OutcomeRejected
			outcome.Reasons = []string{err.Error()}
			return outcome
		}
		outcome.Kind = OutcomeUpdated
		return outcome
	}

	if _, err := e.service.CreateProduct(ctx, parsed.Record); err != nil {
		outcome.Kind = OutcomeRejected
		outcome.Reasons = []string{err.Error()}
		return outcome
	}
	outcome.Kind = OutcomeInserted
	return outcome
}
