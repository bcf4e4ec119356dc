// Package store implements the inventory store: the catalog, the sales and
// invoices recorded against it, and the stock movement ledger.
//
// Every operation runs under one mutex from first read to last write, so
// callers always observe the collections in a mutually consistent state.
// After each mutation the whole state is written to the backend as a single
// batch. That write is best-effort: a failure is logged and the in-memory
// mutation stands. Use Flush when the result of persisting matters.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safar/stockbook/internal/kvstore"
	"github.com/safar/stockbook/internal/models"
	"github.com/safar/stockbook/internal/notify"
)

// Backend keys. Each holds one JSON array.
const (
	KeyProducts     = "products"
	KeySales        = "sales"
	KeyInvoices     = "invoices"
	KeyStockChanges = "stock_changes"
)

type Inventory struct {
	mu sync.RWMutex

	products     []models.Product
	sales        []models.Sale
	invoices     []models.Invoice
	stockChanges []models.StockChange

	// events queued by the current writer, delivered by unlock
	pending []notify.Event

	backend            kvstore.Backend
	notifier           notify.Notifier
	now                func() time.Time
	newID              func(prefix string) string
	allowNegativeStock bool
	persistTimeout     time.Duration
}

type Option func(*Inventory)

func WithNotifier(n notify.Notifier) Option {
	return func(inv *Inventory) { inv.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(inv *Inventory) { inv.now = now }
}

// WithIDGenerator replaces the default prefixed-UUID identifiers.
func WithIDGenerator(newID func(prefix string) string) Option {
	return func(inv *Inventory) { inv.newID = newID }
}

// WithAllowNegativeStock lets ProcessSale sell more than is in stock, leaving
// a negative quantity behind.
func WithAllowNegativeStock(allow bool) Option {
	return func(inv *Inventory) { inv.allowNegativeStock = allow }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(inv *Inventory) { inv.persistTimeout = d }
}

func newUUID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Open loads every collection from backend. A missing products key seeds the
// demo catalog; missing sales, invoices or stock changes start empty.
func Open(ctx context.Context, backend kvstore.Backend, opts ...Option) (*Inventory, error) {
	inv := &Inventory{
		backend:        backend,
		notifier:       notify.Discard,
		now:            time.Now,
		newID:          newUUID,
		persistTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(inv)
	}

	seeded, err := loadCollection(ctx, backend, KeyProducts, &inv.products)
	if err != nil {
		return nil, err
	}
	if !seeded {
		inv.products = demoCatalog()
	}

	if _, err := loadCollection(ctx, backend, KeySales, &inv.sales); err != nil {
		return nil, err
	}
	if _, err := loadCollection(ctx, backend, KeyInvoices, &inv.invoices); err != nil {
		return nil, err
	}
	if _, err := loadCollection(ctx, backend, KeyStockChanges, &inv.stockChanges); err != nil {
		return nil, err
	}

	if !seeded {
		inv.persist(ctx)
	}

	inv.CheckLowStock()

	return inv, nil
}

// loadCollection decodes key into dest. It reports false, leaving dest
// untouched, when the key is absent.
func loadCollection[T any](ctx context.Context, backend kvstore.Backend, key string, dest *[]T) (bool, error) {
	data, err := backend.Load(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	*dest = items

	return true, nil
}

// Flush writes the full state to the backend and reports the outcome.
func (inv *Inventory) Flush(ctx context.Context) error {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return inv.save(ctx)
}

// persist is the best-effort write that follows every mutation. Callers hold
// the write lock so batches reach the backend in mutation order.
func (inv *Inventory) persist(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inv.persistTimeout)
	defer cancel()

	if err := inv.save(ctx); err != nil {
		log.Printf("persist inventory: %v", err)
	}
}

func (inv *Inventory) save(ctx context.Context) error {
	entries := make(map[string][]byte, 4)

	collections := []struct {
		key   string
		value any
	}{
		{KeyProducts, nonNil(inv.products)},
		{KeySales, nonNil(inv.sales)},
		{KeyInvoices, nonNil(inv.invoices)},
		{KeyStockChanges, nonNil(inv.stockChanges)},
	}
	for _, c := range collections {
		data, err := json.Marshal(c.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.key, err)
		}
		entries[c.key] = data
	}

	if err := inv.backend.SaveAll(ctx, entries); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

// nonNil makes empty collections encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (inv *Inventory) event(kind notify.Kind, title, description, productID string) notify.Event {
	return notify.Event{
		Kind:        kind,
		Title:       title,
		Description: description,
		ProductID:   productID,
		Time:        inv.now().UTC(),
	}
}

// emit queues an event. The caller holds the write lock.
func (inv *Inventory) emit(kind notify.Kind, title, description, productID string) {
	inv.pending = append(inv.pending, inv.event(kind, title, description, productID))
}

// unlock releases the write lock and then delivers the queued events, so a
// notifier may read the store.
func (inv *Inventory) unlock() {
	events := inv.pending
	inv.pending = nil
	inv.mu.Unlock()

	for _, e := range events {
		inv.notifier.Notify(e)
	}
}

func (inv *Inventory) recordStockChange(p models.Product, previous int, changeType models.StockChangeType, at time.Time) models.StockChange {
	return models.StockChange{
		ID:               inv.newID("sc"),
		ProductID:        p.ID,
		ProductName:      p.Name,
		PreviousQuantity: previous,
		NewQuantity:      p.StockQuantity,
		ChangeAmount:     p.StockQuantity - previous,
		ChangeType:       changeType,
		Date:             at,
	}
}

// Sales returns every sale in the order it was recorded.
func (inv *Inventory) Sales() []models.Sale {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]models.Sale, len(inv.sales))
	for i, s := range inv.sales {
		out[i] = cloneSale(s)
	}
	return out
}

func (inv *Inventory) Sale(id string) (models.Sale, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	for _, s := range inv.sales {
		if s.ID == id {
			return cloneSale(s), nil
		}
	}
	return models.Sale{}, ErrSaleNotFound
}

// Snapshot is a mutually consistent copy of the catalog, sales and invoices.
type Snapshot struct {
	Products []models.Product
	Sales    []models.Sale
	Invoices []models.Invoice
}

func (inv *Inventory) Snapshot() Snapshot {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	snap := Snapshot{
		Products: append([]models.Product{}, inv.products...),
		Sales:    make([]models.Sale, len(inv.sales)),
		Invoices: make([]models.Invoice, len(inv.invoices)),
	}
	for i, s := range inv.sales {
		snap.Sales[i] = cloneSale(s)
	}
	for i, invoice := range inv.invoices {
		snap.Invoices[i] = cloneInvoice(invoice)
	}
	return snap
}

// StockChanges returns the full stock movement ledger, oldest first.
func (inv *Inventory) StockChanges() []models.StockChange {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return append([]models.StockChange{}, inv.stockChanges...)
}

// StockHistory returns the ledger entries for one product, oldest first.
// Entries outlive the product they refer to.
func (inv *Inventory) StockHistory(productID string) []models.StockChange {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	var out []models.StockChange
	for _, c := range inv.stockChanges {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out
}

func cloneSale(s models.Sale) models.Sale {
	s.Items = append([]models.SaleItem(nil), s.Items...)
	if s.CustomerID != nil {
		id := *s.CustomerID
		s.CustomerID = &id
	}
	return s
}

func cloneInvoice(i models.Invoice) models.Invoice {
	i.Items = append([]models.SaleItem(nil), i.Items...)
	return i
}
