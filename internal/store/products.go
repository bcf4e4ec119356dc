package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/stockbook/internal/models"
	"github.com/safar/stockbook/internal/notify"
)

// AddProduct appends p to the catalog under a freshly assigned ID. Any ID on
// p is ignored.
func (inv *Inventory) AddProduct(ctx context.Context, p models.Product) (models.Product, error) {
	inv.mu.Lock()
	defer inv.unlock()

	p.ID = inv.newID("p")
	inv.products = append(inv.products, p)

	inv.persist(ctx)
	inv.emit(notify.KindSuccess, "Product added successfully", "", p.ID)

	return p, nil
}

// UpdateProduct replaces the product with the given id, keeping the id.
// An unknown id changes nothing and returns ErrProductNotFound.
func (inv *Inventory) UpdateProduct(ctx context.Context, id string, p models.Product) (models.Product, error) {
	inv.mu.Lock()
	defer inv.unlock()

	i := inv.indexOf(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}

	previous := inv.products[i].StockQuantity
	p.ID = id
	inv.products[i] = p

	if p.StockQuantity != previous {
		change := inv.recordStockChange(p, previous, models.StockChangeAdjustment, inv.now().UTC())
		inv.stockChanges = append(inv.stockChanges, change)
	}

	inv.persist(ctx)
	inv.emit(notify.KindSuccess, "Product updated successfully", "", id)

	return p, nil
}

// DeleteProduct removes the product. Sales and invoices that reference it
// keep their own copy of its name and price.
func (inv *Inventory) DeleteProduct(ctx context.Context, id string) error {
	inv.mu.Lock()
	defer inv.unlock()

	i := inv.indexOf(id)
	if i < 0 {
		return ErrProductNotFound
	}

	inv.products = append(inv.products[:i:i], inv.products[i+1:]...)

	inv.persist(ctx)
	inv.emit(notify.KindSuccess, "Product deleted successfully", "", id)

	return nil
}

// RestockProduct adds quantity units to the product's stock.
func (inv *Inventory) RestockProduct(ctx context.Context, id string, quantity int) (models.Product, error) {
	if quantity <= 0 {
		return models.Product{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	inv.mu.Lock()
	defer inv.unlock()

	i := inv.indexOf(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}

	previous := inv.products[i].StockQuantity
	inv.products[i].StockQuantity += quantity
	p := inv.products[i]

	inv.stockChanges = append(inv.stockChanges,
		inv.recordStockChange(p, previous, models.StockChangeRestock, inv.now().UTC()))

	inv.persist(ctx)
	inv.emit(notify.KindSuccess, fmt.Sprintf("%d units added to stock", quantity), "", id)

	return p, nil
}

// LowStockProducts returns every product at or below its threshold, in
// catalog order.
func (inv *Inventory) LowStockProducts() []models.Product {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	var out []models.Product
	for _, p := range inv.products {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}

// CheckLowStock emits a single summary notification when any product is low.
func (inv *Inventory) CheckLowStock() {
	low := len(inv.LowStockProducts())
	if low == 0 {
		return
	}
	inv.notifier.Notify(inv.event(notify.KindInfo,
		fmt.Sprintf("%d items are low in stock!", low), "Check inventory for details", ""))
}

func (inv *Inventory) Products() []models.Product {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return append([]models.Product{}, inv.products...)
}

func (inv *Inventory) Product(id string) (models.Product, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	i := inv.indexOf(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}
	return inv.products[i], nil
}

// SearchProducts matches term case-insensitively against name, category and
// SKU. An empty term matches everything.
func (inv *Inventory) SearchProducts(term string) []models.Product {
	term = strings.ToLower(strings.TrimSpace(term))

	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := []models.Product{}
	for _, p := range inv.products {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Category), term) ||
			strings.Contains(strings.ToLower(p.SKU), term) {
			out = append(out, p)
		}
	}
	return out
}

func (inv *Inventory) indexOf(id string) int {
	for i, p := range inv.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
