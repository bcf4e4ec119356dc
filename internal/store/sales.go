package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/safar/stockbook/internal/models"
	"github.com/safar/stockbook/internal/notify"
	"github.com/shopspring/decimal"
)

// ProcessSale sells the cart: it records a sale, decrements stock, and issues
// a paid invoice for it, all as one state transition.
//
// The whole cart is rejected, with nothing changed, when it is empty, when
// any line has a non-positive quantity or an unknown product, or (unless
// negative stock is allowed) when a product's requested total exceeds its
// stock. Lines naming the same product are summed.
//
// A low-stock notification fires for each product whose stock crosses its
// threshold on this sale; products already at or below it stay quiet.
func (inv *Inventory) ProcessSale(ctx context.Context, items []models.CartItem, customer models.Customer) (models.Invoice, error) {
	if len(items) == 0 {
		return models.Invoice{}, ErrEmptyCart
	}

	inv.mu.Lock()
	defer inv.unlock()

	positions := make(map[string]int, len(inv.products))
	for i, p := range inv.products {
		positions[p.ID] = i
	}

	saleItems := make([]models.SaleItem, 0, len(items))
	sold := make(map[string]int, len(items))
	total := decimal.Zero

	for _, item := range items {
		if item.Quantity <= 0 {
			return models.Invoice{}, fmt.Errorf("%w: %d of %s", ErrInvalidQuantity, item.Quantity, item.ProductID)
		}

		i, ok := positions[item.ProductID]
		if !ok {
			return models.Invoice{}, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		p := inv.products[i]

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		saleItems = append(saleItems, models.SaleItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.Price,
			Total:       lineTotal,
		})
		total = total.Add(lineTotal)
		sold[p.ID] += item.Quantity
	}

	if !inv.allowNegativeStock {
		for id, quantity := range sold {
			p := inv.products[positions[id]]
			if quantity > p.StockQuantity {
				return models.Invoice{}, fmt.Errorf("%w: %s has %d, requested %d",
					ErrInsufficientStock, p.Name, p.StockQuantity, quantity)
			}
		}
	}

	now := inv.now().UTC()

	sale := models.Sale{
		ID:           inv.newID("s"),
		Date:         now,
		Items:        saleItems,
		Total:        total,
		CustomerName: customer.Name,
	}
	if customer.ID != "" {
		id := customer.ID
		sale.CustomerID = &id
	}
	if sale.CustomerName == "" {
		sale.CustomerName = models.WalkInCustomer
	}

	tax := total.Mul(models.TaxRate)
	invoice := models.Invoice{
		ID:           inv.newID("inv"),
		SaleID:       sale.ID,
		Date:         sale.Date,
		CustomerName: sale.CustomerName,
		Items:        slices.Clone(saleItems),
		Subtotal:     total,
		Tax:          tax,
		Total:        total.Add(tax),
		Status:       models.InvoiceStatusPaid,
	}

	products := slices.Clone(inv.products)
	var (
		changes []models.StockChange
		alerts  []models.Product
	)
	for i, p := range products {
		quantity, ok := sold[p.ID]
		if !ok {
			continue
		}

		previous := p.StockQuantity
		products[i].StockQuantity = previous - quantity

		if products[i].StockQuantity <= p.LowStockThreshold && previous > p.LowStockThreshold {
			alerts = append(alerts, products[i])
		}
		changes = append(changes, inv.recordStockChange(products[i], previous, models.StockChangeSale, now))
	}

	inv.products = products
	inv.sales = append(inv.sales, sale)
	inv.invoices = append(inv.invoices, invoice)
	inv.stockChanges = append(inv.stockChanges, changes...)

	inv.persist(ctx)

	for _, p := range alerts {
		inv.emit(notify.KindLowStock,
			fmt.Sprintf("Low stock alert: %s", p.Name),
			fmt.Sprintf("Only %d units remaining", p.StockQuantity),
			p.ID)
	}
	inv.emit(notify.KindSuccess, "Sale processed successfully", "", sale.ID)

	return cloneInvoice(invoice), nil
}
