package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is applied to every invoice subtotal.
var TaxRate = decimal.NewFromFloat(0.10)

const WalkInCustomer = "Walk-in Customer"

type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	SKU               string          `json:"sku"`
	ImageURL          string          `json:"image_url,omitempty"`
}

// IsLowStock reports whether the product is at or below its restock threshold.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

type SaleItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Sale struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	Items        []SaleItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	CustomerID   *string         `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
}

type InvoiceStatus string

const (
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID           string          `json:"id"`
	SaleID       string          `json:"sale_id"`
	Date         time.Time       `json:"date"`
	CustomerName string          `json:"customer_name"`
	Items        []SaleItem      `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Status       InvoiceStatus   `json:"status"`
}

type StockChangeType string

const (
	StockChangeSale       StockChangeType = "sale"
	StockChangeRestock    StockChangeType = "restock"
	StockChangeAdjustment StockChangeType = "adjustment"
)

// StockChange is one entry of the append-only stock movement ledger.
type StockChange struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	PreviousQuantity int             `json:"previous_quantity"`
	NewQuantity      int             `json:"new_quantity"`
	ChangeAmount     int             `json:"change_amount"`
	ChangeType       StockChangeType `json:"change_type"`
	Date             time.Time       `json:"date"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Customer struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}
