package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poskit/backoffice/internal/catalog"
	"github.com/poskit/backoffice/internal/client"
	"github.com/poskit/backoffice/internal/config"
	"github.com/poskit/backoffice/internal/importer"
)

// stubService is an in-memory CatalogService for handler tests.
type stubService struct {
	cats     []catalog.Category
	mans     []catalog.Manufacturer
	products []catalog.Product
	sales    []catalog.Sale
	users    []catalog.User

	created     []catalog.Product
	updated     []catalog.Product
	invalidated bool

	err error
}

func (f *stubService) Categories(ctx context.Context) ([]catalog.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cats, nil
}

func (f *stubService) Manufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	return f.mans, nil
}

func (f *stubService) AdminProducts(ctx context.Context) ([]catalog.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *stubService) Sales(ctx context.Context) ([]catalog.Sale, error) { return f.sales, nil }
func (f *stubService) Users(ctx context.Context) ([]catalog.User, error) { return f.users, nil }

func (f *stubService) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.ID = "new-id"
	f.created = append(f.created, p)
	return p, nil
}

func (f *stubService) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	f.updated = append(f.updated, p)
	return p, nil
}

func (f *stubService) DeleteProduct(ctx context.Context, id string) error { return f.err }

func (f *stubService) CreateCategory(ctx context.Context, name string) (catalog.Category, error) {
	return catalog.Category{ID: "c-new", Name: name}, nil
}

func (f *stubService) UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	return cat, nil
}

func (f *stubService) DeleteCategory(ctx context.Context, id string) error { return f.err }

func (f *stubService) CreateManufacturer(ctx context.Context, name string) (catalog.Manufacturer, error) {
	return catalog.Manufacturer{ID: "m-new", Name: name}, nil
}

func (f *stubService) UpdateManufacturer(ctx context.Context, m catalog.Manufacturer) (catalog.Manufacturer, error) {
	return m, nil
}

func (f *stubService) DeleteManufacturer(ctx context.Context, id string) error { return f.err }
func (f *stubService) DeleteUser(ctx context.Context, id string) error         { return f.err }
func (f *stubService) InvalidateAll()                                          { f.invalidated = true }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Import.MaxFileSize = 1 << 20
	cfg.Import.Timeout = time.Minute
	cfg.Audit.HistoryLimit = 50
	cfg.Rate.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, svc CatalogService) *Server {
	t.Helper()
	return NewServer(testConfig(), svc, importer.NewPassLimiter(1, 100*time.Millisecond), nil)
}

func catalogStub() *stubService {
	return &stubService{
		cats: []catalog.Category{{ID: "c1", Name: "Jackets"}},
		mans: []catalog.Manufacturer{{ID: "m1", Name: "NorthPeak"}},
		products: []catalog.Product{
			{ID: "p1", Title: "Alpine Jacket", Code: "AJ-100", Price: 129.99,
				CategoryID: "c1", ManufacturerID: "m1", Image: "http://img/aj.png",
				Sizes: []catalog.SizeStock{{Size: "M", Stock: 3}}, IsVisible: true},
			{ID: "p2", Title: "Trail Boot", Code: "TB-200", Price: 149,
				CategoryID: "c1", ManufacturerID: "m1", Image: "http://img/tb.png",
				IsVisible: false},
		},
	}
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleListProducts(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/products?visible=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var products []catalog.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 || products[0].Code != "AJ-100" {
		t.Errorf("products = %+v", products)
	}
}

func TestHandleListProducts_SortDesc(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/products?sort=price&dir=desc", nil))
	var products []catalog.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 || products[0].Code != "TB-200" {
		t.Errorf("products = %+v", products)
	}
}

func TestHandleListProducts_ServiceErrorForwarded(t *testing.T) {
	svc := catalogStub()
	svc.err = &client.APIError{StatusCode: http.StatusUnauthorized, Message: "token expired"}
	s := newTestServer(t, svc)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "token expired") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestHandleCreateCategory(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/categories",
		strings.NewReader(`{"name":"Boots"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doRequest(s, httptest.NewRequest(http.MethodPost, "/api/categories",
		strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", rec.Code)
	}
}

func TestHandleCacheRefresh(t *testing.T) {
	svc := catalogStub()
	s := newTestServer(t, svc)

	rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/cache/refresh", nil))
	if rec.Code != http.StatusNoContent || !svc.invalidated {
		t.Errorf("status = %d, invalidated = %v", rec.Code, svc.invalidated)
	}
}

func TestHandleSalesSummary_NoDateRange(t *testing.T) {
	// Without from/to the summary covers the whole sales history.
	svc := catalogStub()
	svc.sales = []catalog.Sale{
		{ID: "s1", ProductID: "p1", Title: "Alpine Jacket", Code: "AJ-100",
			Quantity: 2, Total: 259.98, CreatedAt: time.Now().Add(-24 * time.Hour)},
		{ID: "s2", ProductID: "p2", Title: "Trail Boot", Code: "TB-200",
			Quantity: 1, Total: 149, CreatedAt: time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	s := newTestServer(t, svc)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/analytics/sales", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var summary catalog.SalesSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Orders != 2 || summary.Units != 3 {
		t.Errorf("summary = %+v, want every sale counted", summary)
	}
}

func TestHandleSalesSummary_FromOnly(t *testing.T) {
	svc := catalogStub()
	svc.sales = []catalog.Sale{
		{ID: "s1", ProductID: "p1", Quantity: 1, Total: 10,
			CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "s2", ProductID: "p2", Quantity: 1, Total: 20,
			CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	s := newTestServer(t, svc)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/analytics/sales?from=2026-03-01", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var summary catalog.SalesSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Orders != 1 || summary.Revenue != 20 {
		t.Errorf("summary = %+v, want only the March sale", summary)
	}
}

func TestHandleSalesSummary_BadDate(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/analytics/sales?from=nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// multipartUpload builds a multipart body with one file field.
func multipartUpload(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

const importCSV = "Title,Code,Price,Category,Manufacturer,Image URL,TotalStock\n" +
	"Alpine Jacket,AJ-100,99,Jackets,NorthPeak,http://img/aj.png,5\n" +
	"Summit Pack,SP-300,79,Jackets,NorthPeak,http://img/sp.png,3\n" +
	"Bad Row,BR-1,-2,Nowhere,NorthPeak,http://img/br.png,1\n"

func TestHandleImport(t *testing.T) {
	svc := catalogStub()
	s := newTestServer(t, svc)

	body, contentType := multipartUpload(t, "stock.csv", importCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/import/products", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var report importer.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Updated != 1 || report.Inserted != 1 || report.Rejected != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.Condition != importer.ConditionPartialSuccess {
		t.Errorf("Condition = %q", report.Condition)
	}
	if len(svc.updated) != 1 || svc.updated[0].ID != "p1" {
		t.Errorf("updated = %+v", svc.updated)
	}
}

func TestHandleImport_UnreadableInput(t *testing.T) {
	s := newTestServer(t, catalogStub())

	body, contentType := multipartUpload(t, "notes.csv", "Title,Price\nX,1\n")
	req := httptest.NewRequest(http.MethodPost, "/api/import/products", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestHandleImport_NoFile(t *testing.T) {
	s := newTestServer(t, catalogStub())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := doRequest(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleImport_BusyReturns429(t *testing.T) {
	s := newTestServer(t, catalogStub())

	// Hold the single pass slot so the request times out waiting.
	if err := s.passes.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer s.passes.Release()

	body, contentType := multipartUpload(t, "stock.csv", importCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/import/products", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(s, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestHandleImportHistory_NotConfigured(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/import/history", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestHandleExport_CSV(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/export/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d: %q", len(lines), rec.Body)
	}
	if !strings.HasPrefix(lines[0], "Title,Code,Price") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Jackets") || !strings.Contains(lines[1], "NorthPeak") {
		t.Errorf("first row should render names: %q", lines[1])
	}
}

func TestHandleExport_FilteredXLSX(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet,
		"/api/export/products?format=xlsx&visible=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("body does not look like a workbook")
	}
}

func TestHandleExport_BadFormat(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/export/products?format=pdf", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestExportImportCycle downloads the catalog and uploads it back unchanged;
// every product must come back as an update.
func TestExportImportCycle(t *testing.T) {
	svc := catalogStub()
	s := newTestServer(t, svc)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/export/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}

	body, contentType := multipartUpload(t, "products.csv", rec.Body.String())
	req := httptest.NewRequest(http.MethodPost, "/api/import/products", body)
	req.Header.Set("Content-Type", contentType)

	rec = doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body)
	}

	var report importer.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Updated != len(svc.products) || report.Inserted != 0 || report.Rejected != 0 {
		t.Errorf("round trip report = %+v", report)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, catalogStub())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	s := NewServer(cfg, catalogStub(), importer.NewPassLimiter(1, time.Second), nil)

	for i := 0; i < 2; i++ {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}
