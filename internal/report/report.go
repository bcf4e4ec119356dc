// Package report derives dashboard aggregates from store snapshots. Nothing
// here is cached; callers recompute on every read.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/safar/stockbook/internal/models"
	"github.com/shopspring/decimal"
)

type ChartPoint struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type SalesSummary struct {
	TotalProducts     int             `json:"total_products"`
	LowStockCount     int             `json:"low_stock_count"`
	TotalSales        int             `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

func Summary(products []models.Product, sales []models.Sale) SalesSummary {
	s := SalesSummary{
		TotalProducts: len(products),
		TotalSales:    len(sales),
		TotalRevenue:  Revenue(sales),
	}
	for _, p := range products {
		if p.IsLowStock() {
			s.LowStockCount++
		}
	}
	if len(sales) > 0 {
		s.AverageOrderValue = s.TotalRevenue.DivRound(decimal.NewFromInt(int64(len(sales))), 2)
	}
	return s
}

func Revenue(sales []models.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Total)
	}
	return total
}

// CategoryDistribution counts products per category, in first-seen order.
func CategoryDistribution(products []models.Product) []ChartPoint {
	return groupBy(products, func(p models.Product) decimal.Decimal {
		return decimal.NewFromInt(1)
	})
}

// InventoryValueByCategory sums price times stock per category.
func InventoryValueByCategory(products []models.Product) []ChartPoint {
	return groupBy(products, func(p models.Product) decimal.Decimal {
		return p.Price.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
	})
}

func groupBy(products []models.Product, value func(models.Product) decimal.Decimal) []ChartPoint {
	points := []ChartPoint{}
	index := make(map[string]int)

	for _, p := range products {
		i, ok := index[p.Category]
		if !ok {
			i = len(points)
			index[p.Category] = i
			points = append(points, ChartPoint{Name: p.Category, Value: decimal.Zero})
		}
		points[i].Value = points[i].Value.Add(value(p))
	}
	return points
}

type StockLevelSplit struct {
	Healthy int `json:"healthy"`
	Low     int `json:"low"`
}

func StockLevels(products []models.Product) StockLevelSplit {
	var split StockLevelSplit
	for _, p := range products {
		if p.IsLowStock() {
			split.Low++
		} else {
			split.Healthy++
		}
	}
	return split
}

type ProductSales struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// TopSellingProducts ranks product names by units sold, highest first. Ties
// keep the order in which the products were first sold. n <= 0 returns all.
func TopSellingProducts(sales []models.Sale, n int) []ProductSales {
	ranked := []ProductSales{}
	index := make(map[string]int)

	for _, s := range sales {
		for _, item := range s.Items {
			i, ok := index[item.ProductName]
			if !ok {
				i = len(ranked)
				index[item.ProductName] = i
				ranked = append(ranked, ProductSales{Name: item.ProductName})
			}
			ranked[i].Quantity += item.Quantity
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quantity > ranked[j].Quantity
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

type TimeRange string

const (
	RangeToday TimeRange = "today"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(s); r {
	case RangeToday, RangeWeek, RangeMonth, RangeYear:
		return r, nil
	case "":
		return RangeMonth, nil
	default:
		return "", fmt.Errorf("unknown time range %q", s)
	}
}

// Start returns the beginning of the range containing now: midnight, the
// most recent Monday, the first of the month, or January 1st.
func (r TimeRange) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch r {
	case RangeToday:
		return midnight
	case RangeWeek:
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case RangeYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
}

// SalesInRange keeps the sales dated from the start of r up to now.
func SalesInRange(sales []models.Sale, r TimeRange, now time.Time) []models.Sale {
	start := r.Start(now)

	out := []models.Sale{}
	for _, s := range sales {
		if !s.Date.Before(start) && !s.Date.After(now) {
			out = append(out, s)
		}
	}
	return out
}

// Dashboard bundles every aggregate the dashboard renders.
type Dashboard struct {
	Range                TimeRange       `json:"range"`
	Summary              SalesSummary    `json:"summary"`
	RangeRevenue         decimal.Decimal `json:"range_revenue"`
	RangeSales           int             `json:"range_sales"`
	CategoryDistribution []ChartPoint    `json:"category_distribution"`
	InventoryValue       []ChartPoint    `json:"inventory_value"`
	StockLevels          StockLevelSplit `json:"stock_levels"`
	TopSelling           []ProductSales  `json:"top_selling"`
}

func BuildDashboard(products []models.Product, sales []models.Sale, r TimeRange, now time.Time) Dashboard {
	inRange := SalesInRange(sales, r, now)

	return Dashboard{
		Range:                r,
		Summary:              Summary(products, sales),
		RangeRevenue:         Revenue(inRange),
		RangeSales:           len(inRange),
		CategoryDistribution: CategoryDistribution(products),
		InventoryValue:       InventoryValueByCategory(products),
		StockLevels:          StockLevels(products),
		TopSelling:           TopSellingProducts(inRange, 5),
	}
}
