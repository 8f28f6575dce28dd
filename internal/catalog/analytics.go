package catalog

// analytics.go computes the sales dashboard aggregates over an in-memory
// sales list: totals per day and a best-sellers ranking. Like the list
// operations, everything here is pure.

import (
	"sort"
	"time"
)

// DailySales is the aggregate of all sales on one calendar day.
type DailySales struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Orders  int     `json:"orders"`
	Units   int     `json:"units"`
	Revenue float64 `json:"revenue"`
}

// ProductSales ranks one product by units sold.
type ProductSales struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Code      string  `json:"code"`
	Units     int     `json:"units"`
	Revenue   float64 `json:"revenue"`
}

// SalesSummary is the full analytics payload for a date range.
type SalesSummary struct {
	From        string         `json:"from"`
	To          string         `json:"to"`
	Orders      int            `json:"orders"`
	Units       int            `json:"units"`
	Revenue     float64        `json:"revenue"`
	Daily       []DailySales   `json:"daily"`
	TopProducts []ProductSales `json:"topProducts"`
}

// Summarize aggregates sales between from and to (inclusive). A zero from or
// to leaves that side of the range unbounded, so Summarize(sales, time.Time{},
// time.Time{}, n) covers the whole history. topN bounds the best-sellers
// list; topN <= 0 means no ranking is produced.
func Summarize(sales []Sale, from, to time.Time, topN int) SalesSummary {
	var summary SalesSummary
	if !from.IsZero() {
		summary.From = from.Format("2006-01-02")
	}
	if !to.IsZero() {
		summary.To = to.Format("2006-01-02")
	}

	byDay := make(map[string]*DailySales)
	byProduct := make(map[string]*ProductSales)

	for _, s := range sales {
		if !from.IsZero() && s.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && s.CreatedAt.After(to.Add(24*time.Hour-time.Nanosecond)) {
			continue
		}

		summary.Orders++
		summary.Units += s.Quantity
		summary.Revenue += s.Total

		day := s.CreatedAt.Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailySales{Date: day}
			byDay[day] = d
		}
		d.Orders++
		d.Units += s.Quantity
		d.Revenue += s.Total

		if topN > 0 {
			p, ok := byProduct[s.ProductID]
			if !ok {
				p = &ProductSales{ProductID: s.ProductID, Title: s.Title, Code: s.Code}
				byProduct[s.ProductID] = p
			}
			p.Units += s.Quantity
			p.Revenue += s.Total
		}
	}

	summary.Daily = make([]DailySales, 0, len(byDay))
	for _, d := range byDay {
		summary.Daily = append(summary.Daily, *d)
	}
	sort.Slice(summary.Daily, func(i, j int) bool {
		return summary.Daily[i].Date < summary.Daily[j].Date
	})

	if topN > 0 {
		ranked := make([]ProductSales, 0, len(byProduct))
		for _, p := range byProduct {
			ranked = append(ranked, *p)
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].Units != ranked[j].Units {
				return ranked[i].Units > ranked[j].Units
			}
			return ranked[i].Revenue > ranked[j].Revenue
		})
		if len(ranked) > topN {
			ranked = ranked[:topN]
		}
		summary.TopProducts = ranked
	}

	return summary
}
