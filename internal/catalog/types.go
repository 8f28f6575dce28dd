// Package catalog defines the domain types served by the remote POS data
// service, plus pure in-memory list operations (filter, sort, search,
// aggregation) shared by the admin endpoints and the export projection.
package catalog

import "time"

// SizeStock is one sellable variant of a product: a size name and the units
// in stock for that size.
type SizeStock struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// Product is a catalog entry as stored by the remote data service.
// Code is the natural key; matching against it is case-insensitive.
type Product struct {
	ID             string      `json:"id,omitempty"`
	Title          string      `json:"title"`
	Code           string      `json:"code"`
	Price          float64     `json:"price"`
	CategoryID     string      `json:"categoryId"`
	ManufacturerID string      `json:"manufacturerId"`
	Sizes          []SizeStock `json:"sizes"`
	Image          string      `json:"image"`
	IsVisible      bool        `json:"isVisible"`
}

// TotalStock returns the number of units across all sizes.
func (p Product) TotalStock() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	return total
}

// Category is a product grouping with a unique display name.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Manufacturer is a product brand with a unique display name.
type Manufacturer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sale is one completed checkout line recorded by the remote service.
type Sale struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Title     string    `json:"title"`
	Code      string    `json:"code"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a back-office account on the remote service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
