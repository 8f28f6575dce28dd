package catalog

// listquery.go implements the in-memory list operations the admin pages
// repeat for every entity: substring search, field filters, and stable
// sorting. All functions are pure; they copy the input slice and never
// mutate it, so cached collections can be shared safely.

import (
	"sort"
	"strings"
)

// SortDir is a sort direction, "asc" or "desc".
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ProductQuery describes one admin list view over the product collection.
// Zero values mean "no constraint".
type ProductQuery struct {
	Search         string  // case-insensitive substring over title and code
	CategoryID     string  // exact match
	ManufacturerID string  // exact match
	VisibleOnly    bool    // keep only visible products
	InStockOnly    bool    // keep only products with total stock > 0
	SortBy         string  // "title", "code", "price", "stock" (default: input order)
	SortDir        SortDir // default SortAsc
}

// FilterProducts returns the products matching q, sorted per q.
// The result is a fresh slice; the input is left untouched.
func FilterProducts(products []Product, q ProductQuery) []Product {
	out := make([]Product, 0, len(products))

	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Code), search) {
			continue
		}
		if q.CategoryID != "" && p.CategoryID != q.CategoryID {
			continue
		}
		if q.ManufacturerID != "" && p.ManufacturerID != q.ManufacturerID {
			continue
		}
		if q.VisibleOnly && !p.IsVisible {
			continue
		}
		if q.InStockOnly && p.TotalStock() == 0 {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, q.SortBy, q.SortDir)
	return out
}

// sortProducts sorts in place. Unknown sort keys leave input order intact,
// matching the behaviour of a list view with no sort column selected.
func sortProducts(products []Product, by string, dir SortDir) {
	var less func(a, b Product) bool

	switch strings.ToLower(by) {
	case "title":
		less = func(a, b Product) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case "code":
		less = func(a, b Product) bool {
			return strings.ToLower(a.Code) < strings.ToLower(b.Code)
		}
	case "price":
		less = func(a, b Product) bool { return a.Price < b.Price }
	case "stock":
		less = func(a, b Product) bool { return a.TotalStock() < b.TotalStock() }
	default:
		return
	}

	if dir == SortDesc {
		inner := less
		less = func(a, b Product) bool { return inner(b, a) }
	}

	sort.SliceStable(products, func(i, j int) bool {
		return less(products[i], products[j])
	})
}

// SearchUsers returns users whose name or email contains the query,
// case-insensitively. An empty query returns a copy of the full list.
func SearchUsers(users []User, query string) []User {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]User, 0, len(users))
	for _, u := range users {
		if q == "" ||
			strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out
}
