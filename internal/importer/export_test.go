package importer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/poskit/backoffice/internal/catalog"
)

func sampleExportProducts() ([]catalog.Product, []catalog.Category, []catalog.Manufacturer) {
	products := []catalog.Product{
		{
			ID: "p1", Title: "Alpine Jacket", Code: "AJ-100", Price: 129.99,
			CategoryID: "c1", ManufacturerID: "m1", Image: "http://img/aj.png",
			Sizes:     []catalog.SizeStock{{Size: "M", Stock: 3}, {Size: "L", Stock: 0}},
			IsVisible: true,
		},
		{
			ID: "p2", Title: "Trail Boot", Code: "TB-200", Price: 149,
			CategoryID: "c1", ManufacturerID: "m1", Image: "http://img/tb.png",
			IsVisible: false,
		},
	}
	cats := []catalog.Category{{ID: "c1", Name: "Jackets"}}
	mans := []catalog.Manufacturer{{ID: "m1", Name: "NorthPeak"}}
	return products, cats, mans
}

func TestProject(t *testing.T) {
	products, cats, mans := sampleExportProducts()

	rows, err := Project(products, cats, mans)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}

	if rows[0][0] != ColTitle || rows[0][len(rows[0])-1] != ColIsVisible {
		t.Errorf("header = %v", rows[0])
	}

	first := rows[1]
	if first[1] != "AJ-100" || first[2] != "129.99" || first[3] != "Jackets" || first[4] != "NorthPeak" {
		t.Errorf("first row = %v", first)
	}
	if first[6] != `[{"size":"M","stock":3},{"size":"L","stock":0}]` {
		t.Errorf("sizes payload = %q", first[6])
	}
	if first[7] != "yes" || rows[2][7] != "no" {
		t.Errorf("visibility = %q, %q", first[7], rows[2][7])
	}

	// A product with no sizes still gets a payload, never a blank cell.
	if rows[2][6] != "[]" {
		t.Errorf("empty sizes payload = %q", rows[2][6])
	}
}

func TestProject_UnresolvableIDs(t *testing.T) {
	products, _, _ := sampleExportProducts()

	rows, err := Project(products, nil, nil)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	// Stale ids render empty; the row itself survives.
	if len(rows) != 3 || rows[1][3] != "" || rows[1][4] != "" {
		t.Errorf("rows = %v", rows)
	}
}

// TestExportImportRoundTrip exports the catalog, re-imports the bytes
// unmodified, and expects every row to come back as an update.
func TestExportImportRoundTrip(t *testing.T) {
	products, cats, mans := sampleExportProducts()

	rows, err := Project(products, cats, mans)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	tbl, err := ReadTable(buf.Bytes(), "export.csv")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	svc := &fakeService{cats: cats, mans: mans, products: products}
	report, err := NewEngine(svc).Run(context.Background(), tbl, "export.csv")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Updated != len(products) || report.Inserted != 0 || report.Rejected != 0 {
		t.Fatalf("round trip report = %+v", report)
	}
	if report.Condition != ConditionSuccess {
		t.Errorf("Condition = %q", report.Condition)
	}

	// The structured payload survives the trip byte for byte.
	got, err := MarshalSizesPayload(svc.updated[0].Sizes)
	if err != nil {
		t.Fatalf("MarshalSizesPayload: %v", err)
	}
	want, _ := MarshalSizesPayload(products[0].Sizes)
	if got != want {
		t.Errorf("payload after round trip = %q, want %q", got, want)
	}
	if svc.updated[1].IsVisible {
		t.Error("hidden product should stay hidden after round trip")
	}
}

func TestExportImportRoundTrip_XLSX(t *testing.T) {
	products, cats, mans := sampleExportProducts()

	rows, err := Project(products, cats, mans)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rows); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	tbl, err := ReadTable(buf.Bytes(), "export.xlsx")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	svc := &fakeService{cats: cats, mans: mans, products: products}
	report, err := NewEngine(svc).Run(context.Background(), tbl, "export.xlsx")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Updated != len(products) || report.Rejected != 0 {
		t.Fatalf("round trip report = %+v", report)
	}
}

func TestMarshalSizesPayload(t *testing.T) {
	got, err := MarshalSizesPayload(nil)
	if err != nil {
		t.Fatalf("MarshalSizesPayload(nil): %v", err)
	}
	if got != "[]" {
		t.Errorf("nil payload = %q", got)
	}

	got, err = MarshalSizesPayload([]catalog.SizeStock{{Size: "S", Stock: 1}})
	if err != nil {
		t.Fatalf("MarshalSizesPayload: %v", err)
	}
	parsed, err := ParseSizesPayload(got)
	if err != nil {
		t.Fatalf("ParseSizesPayload(%q): %v", got, err)
	}
	if len(parsed) != 1 || parsed[0] != (catalog.SizeStock{Size: "S", Stock: 1}) {
		t.Errorf("parsed = %v", parsed)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, [][]string{{"a", "b"}, {"1", "with,comma"}})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "a,b\n1,\"with,comma\"\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, [][]string{{"Title", "Code"}, {"Alpine Jacket", "AJ-100"}})
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	// XLSX is a zip container.
	if !strings.HasPrefix(buf.String(), "PK") {
		t.Errorf("output does not look like a workbook: % x", buf.Bytes()[:4])
	}
}
