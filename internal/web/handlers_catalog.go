package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poskit/backoffice/internal/catalog"
	"github.com/poskit/backoffice/internal/client"
)

// respondServiceError maps a remote service failure onto our own status:
// the upstream status is forwarded when the remote produced one, everything
// else is a bad gateway.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		writeError(w, r, apiErr.StatusCode, apiErr.Error())
		return
	}
	writeError(w, r, http.StatusBadGateway, err.Error())
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.AdminProducts(r.Context())
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

	writeJSON(w, catalog.FilterProducts(products, query))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, cats)
}

func (s *Server) handleListManufacturers(w http.ResponseWriter, r *http.Request) {
	mans, err := s.service.Manufacturers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, mans)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.Users(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, catalog.SearchUsers(users, r.URL.Query().Get("search")))
}

// handleSalesSummary aggregates the sales history into daily and per-product
// totals. from/to take YYYY-MM-DD; top caps the ranked product list.
func (s *Server) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	sales, err := s.service.Sales(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
			return
		}
	}

	topN := 10
	if v := q.Get("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topN = n
		}
	}

	writeJSON(w, catalog.Summarize(sales, from, to, topN))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product body")
		return
	}
	out, err := s.service.CreateProduct(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, out)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid product body")
		return
	}
	p.ID = chi.URLParam(r, "id")
	out, err := s.service.UpdateProduct(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// namePayload is the body for category and manufacturer writes.
type namePayload struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body namePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, r, http.StatusBadRequest, "missing category name")
		return
	}
	out, err := s.service.CreateCategory(r.Context(), body.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, out)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body namePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, r, http.StatusBadRequest, "missing category name")
		return
	}
	out, err := s.service.UpdateCategory(r.Context(), catalog.Category{
		ID:   chi.URLParam(r, "id"),
		Name: body.Name,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateManufacturer(w http.ResponseWriter, r *http.Request) {
	var body namePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, r, http.StatusBadRequest, "missing manufacturer name")
		return
	}
	out, err := s.service.CreateManufacturer(r.Context(), body.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, out)
}

func (s *Server) handleUpdateManufacturer(w http.ResponseWriter, r *http.Request) {
	var body namePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, r, http.StatusBadRequest, "missing manufacturer name")
		return
	}
	out, err := s.service.UpdateManufacturer(r.Context(), catalog.Manufacturer{
		ID:   chi.URLParam(r, "id"),
		Name: body.Name,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleDeleteManufacturer(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteManufacturer(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheRefresh(w http.ResponseWriter, r *http.Request) {
	s.service.InvalidateAll()
	w.WriteHeader(http.StatusNoContent)
}
