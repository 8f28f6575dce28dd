package importer

// index.go builds the read-only lookup structure one import pass runs
// against: name→id maps for categories and manufacturers and a code→product
// map for the current catalog snapshot. The index is built exactly once per
// pass and discarded afterwards; mutations during the pass do not refresh it.

import (
	"context"
	"fmt"
	"strings"

	"github.com/poskit/backoffice/internal/catalog"
)

// CatalogFetcher is the slice of the data-access layer the index needs.
type CatalogFetcher interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	Manufacturers(ctx context.Context) ([]catalog.Manufacturer, error)
	AdminProducts(ctx context.Context) ([]catalog.Product, error)
}

// CatalogIndex is the pass-scoped snapshot lookup. All keys are lowercased;
// lookups are case-insensitive by construction.
type CatalogIndex struct {
	categories    map[string]string          // lower(name) -> id
	manufacturers map[string]string          // lower(name) -> id
	products      map[string]catalog.Product // lower(code) -> existing product
}

// NewCatalogIndex builds an index from already-fetched collections.
func NewCatalogIndex(cats []catalog.Category, mans []catalog.Manufacturer, products []catalog.Product) *CatalogIndex {
	idx := &CatalogIndex{
		categories:    make(map[string]string, len(cats)),
		manufacturers: make(map[string]string, len(mans)),
		products:      make(map[string]catalog.Product, len(products)),
	}
	for _, c := range cats {
		idx.categories[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
	}
	for _, m := range mans {
		idx.manufacturers[strings.ToLower(strings.TrimSpace(m.Name))] = m.ID
	}
	for _, p := range products {
		idx.products[strings.ToLower(strings.TrimSpace(p.Code))] = p
	}
	return idx
}

// BuildCatalogIndex fetches the three collections and builds the index.
func BuildCatalogIndex(ctx context.Context, fetcher CatalogFetcher) (*CatalogIndex, error) {
	cats, err := fetcher.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	mans, err := fetcher.Manufacturers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch manufacturers: %w", err)
	}
	products, err := fetcher.AdminProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return NewCatalogIndex(cats, mans, products), nil
}

// CategoryID resolves a category name, case-insensitively.
func (idx *CatalogIndex) CategoryID(name string) (string, bool) {
	id, ok := idx.categories[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// ManufacturerID resolves a manufacturer name, case-insensitively.
func (idx *CatalogIndex) ManufacturerID(name string) (string, bool) {
	id, ok := idx.manufacturers[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// ProductByCode returns the existing product for a code, case-insensitively.
func (idx *CatalogIndex) ProductByCode(code string) (catalog.Product, bool) {
	p, ok := idx.products[strings.ToLower(strings.TrimSpace(code))]
	return p, ok
}
