package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/safar/stockbook/internal/models"
	"github.com/safar/stockbook/internal/notify"
	"github.com/safar/stockbook/internal/report"
	"github.com/safar/stockbook/internal/store"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	SKU               string          `json:"sku"`
	ImageURL          string          `json:"image_url"`
}

func (req productRequest) validate() string {
	switch {
	case req.Name == "":
		return "name is required"
	case req.Price.IsNegative():
		return "price must not be negative"
	case req.Cost.IsNegative():
		return "cost must not be negative"
	case req.StockQuantity < 0:
		return "stock_quantity must not be negative"
	case req.LowStockThreshold < 0:
		return "low_stock_threshold must not be negative"
	}
	return ""
}

func (req productRequest) product() models.Product {
	return models.Product{
		Name:              req.Name,
		Category:          req.Category,
		Price:             req.Price,
		Cost:              req.Cost,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		SKU:               req.SKU,
		ImageURL:          req.ImageURL,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	products := s.inv.SearchProducts(r.URL.Query().Get("q"))

	respondJSON(w, http.StatusOK, store.Paginate(products, page, pageSize))
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	product, err := s.inv.AddProduct(r.Context(), req.product())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.inv.Product(r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	product, err := s.inv.UpdateProduct(r.Context(), r.PathValue("id"), req.product())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.inv.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}

	product, err := s.inv.RestockProduct(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history := s.inv.StockHistory(id)

	// deleted products keep their history
	if len(history) == 0 {
		if _, err := s.inv.Product(id); err != nil {
			respondStoreError(w, err)
			return
		}
		history = []models.StockChange{}
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	low := s.inv.LowStockProducts()
	if low == nil {
		low = []models.Product{}
	}
	respondJSON(w, http.StatusOK, low)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	respondJSON(w, http.StatusOK, store.Paginate(s.inv.Sales(), page, pageSize))
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := s.inv.Sale(r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sale)
}

func (s *Server) handleProcessSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items    []models.CartItem `json:"items"`
		Customer models.Customer   `json:"customer"`
	}
	if !decode(w, r, &req) {
		return
	}

	invoice, err := s.inv.ProcessSale(r.Context(), req.Items, req.Customer)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, invoice)
}

// handleListInvoices searches with ?q= and pages by offset, or walks by
// ?cursor= when no search term is given.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if term := query.Get("q"); term != "" || query.Has("page") {
		page, pageSize := pageParams(r)
		respondJSON(w, http.StatusOK, store.Paginate(s.inv.SearchInvoices(term), page, pageSize))
		return
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := s.inv.ListInvoicesCursor(query.Get("cursor"), limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := s.inv.Invoice(r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	timeRange, err := report.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.inv.Snapshot()
	dashboard := report.BuildDashboard(snap.Products, snap.Sales, timeRange, s.now())
	respondJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	events := []notify.Event{}
	if s.events != nil {
		events = append(events, s.events.Events()...)
	}
	respondJSON(w, http.StatusOK, events)
}

const maxPage = 1 << 20

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	page = min(page, maxPage)
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrInvoiceNotFound),
		errors.Is(err, store.ErrSaleNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrEmptyCart),
		errors.Is(err, store.ErrInvalidQuantity):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("Store error: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
