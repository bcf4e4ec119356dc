// Package api exposes the inventory store over JSON HTTP.
package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/safar/stockbook/internal/notify"
	"github.com/safar/stockbook/internal/store"
)

type Server struct {
	inv    *store.Inventory
	events *notify.Recorder
	token  string
	now    func() time.Time
}

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every route except
// /health. An empty token leaves the API open.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithEvents serves the recorder's contents on /notifications.
func WithEvents(events *notify.Recorder) Option {
	return func(s *Server) { s.events = events }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(inv *store.Inventory, opts ...Option) *Server {
	s := &Server{inv: inv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("POST /products", s.handleAddProduct)
	mux.HandleFunc("GET /products/low-stock", s.handleLowStock)
	mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	mux.HandleFunc("PUT /products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST /products/{id}/restock", s.handleRestock)
	mux.HandleFunc("GET /products/{id}/history", s.handleHistory)

	mux.HandleFunc("GET /sales", s.handleListSales)
	mux.HandleFunc("POST /sales", s.handleProcessSale)
	mux.HandleFunc("GET /sales/{id}", s.handleGetSale)

	mux.HandleFunc("GET /invoices", s.handleListInvoices)
	mux.HandleFunc("GET /invoices/{id}", s.handleGetInvoice)

	mux.HandleFunc("GET /reports/summary", s.handleSummary)
	mux.HandleFunc("GET /notifications", s.handleNotifications)

	return logRequests(s.authenticate(mux))
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			respondError(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
