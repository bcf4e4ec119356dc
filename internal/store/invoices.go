package store

import (
	"sort"
	"strings"

	"github.com/safar/stockbook/internal/models"
)

// Invoices returns every invoice in the order it was issued.
func (inv *Inventory) Invoices() []models.Invoice {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]models.Invoice, len(inv.invoices))
	for i, invoice := range inv.invoices {
		out[i] = cloneInvoice(invoice)
	}
	return out
}

func (inv *Inventory) Invoice(id string) (models.Invoice, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	for _, invoice := range inv.invoices {
		if invoice.ID == id {
			return cloneInvoice(invoice), nil
		}
	}
	return models.Invoice{}, ErrInvoiceNotFound
}

// SearchInvoices matches term case-insensitively against customer name and
// invoice ID, newest first.
func (inv *Inventory) SearchInvoices(term string) []models.Invoice {
	term = strings.ToLower(strings.TrimSpace(term))

	out := []models.Invoice{}
	for _, invoice := range inv.Invoices() {
		if term == "" ||
			strings.Contains(strings.ToLower(invoice.CustomerName), term) ||
			strings.Contains(strings.ToLower(invoice.ID), term) {
			out = append(out, invoice)
		}
	}

	sortNewestFirst(out)
	return out
}

// sortNewestFirst orders by date, then ID, both descending. The pair is the
// invoice cursor key.
func sortNewestFirst(invoices []models.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		return cursorOf(invoices[i]).after(cursorOf(invoices[j]))
	})
}
