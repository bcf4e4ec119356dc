package store

import (
	"github.com/safar/stockbook/internal/models"
	"github.com/shopspring/decimal"
)

// demoCatalog is what a store starts with when the backend holds no products.
func demoCatalog() []models.Product {
	return []models.Product{
		{
			ID:                "p1",
			Name:              "Laptop",
			Category:          "Electronics",
			Price:             decimal.RequireFromString("999.99"),
			Cost:              decimal.NewFromInt(750),
			StockQuantity:     15,
			LowStockThreshold: 5,
			SKU:               "LAP-001",
		},
		{
			ID:                "p2",
			Name:              "Desk Chair",
			Category:          "Furniture",
			Price:             decimal.RequireFromString("149.99"),
			Cost:              decimal.NewFromInt(80),
			StockQuantity:     8,
			LowStockThreshold: 3,
			SKU:               "DCH-002",
		},
		{
			ID:                "p3",
			Name:              "Coffee Maker",
			Category:          "Appliances",
			Price:             decimal.RequireFromString("79.99"),
			Cost:              decimal.NewFromInt(40),
			StockQuantity:     4,
			LowStockThreshold: 5,
			SKU:               "COF-003",
		},
		{
			ID:                "p4",
			Name:              "Bluetooth Speaker",
			Category:          "Electronics",
			Price:             decimal.RequireFromString("59.99"),
			Cost:              decimal.NewFromInt(30),
			StockQuantity:     20,
			LowStockThreshold: 5,
			SKU:               "SPK-004",
		},
		{
			ID:                "p5",
			Name:              "Office Desk",
			Category:          "Furniture",
			Price:             decimal.RequireFromString("299.99"),
			Cost:              decimal.NewFromInt(180),
			StockQuantity:     6,
			LowStockThreshold: 2,
			SKU:               "DSK-005",
		},
	}
}
