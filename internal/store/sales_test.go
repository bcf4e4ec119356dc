package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/safar/stockbook/internal/models"
	"github.com/safar/stockbook/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []models.Product{widget("a", 100, 10, 5)})

	invoice, err := f.inv.ProcessSale(ctx,
		[]models.CartItem{{ProductID: "a", Quantity: 3}},
		models.Customer{Name: "Alice"})
	require.NoError(t, err)

	p, err := f.inv.Product("a")
	require.NoError(t, err)
	assert.Equal(t, 7, p.StockQuantity)

	sales := f.inv.Sales()
	require.Len(t, sales, 1)
	sale := sales[0]
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(300)), "sale total %s", sale.Total)
	assert.Equal(t, "Alice", sale.CustomerName)
	assert.Nil(t, sale.CustomerID)
	assert.True(t, f.clock.Equal(sale.Date))

	assert.True(t, invoice.Subtotal.Equal(decimal.NewFromInt(300)), "subtotal %s", invoice.Subtotal)
	assert.True(t, invoice.Tax.Equal(decimal.NewFromInt(30)), "tax %s", invoice.Tax)
	assert.True(t, invoice.Total.Equal(decimal.NewFromInt(330)), "total %s", invoice.Total)
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, sale.ID, invoice.SaleID)
	assert.NotEqual(t, sale.ID, invoice.ID)
	assert.Equal(t, sale.Date, invoice.Date)
	assert.Equal(t, sale.CustomerName, invoice.CustomerName)
	assert.Equal(t, sale.Items, invoice.Items)

	got, err := f.inv.Sale(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, got.ID)

	_, err = f.inv.Sale(invoice.ID)
	assert.ErrorIs(t, err, ErrSaleNotFound)

	stored, err := f.inv.Invoice(invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice, stored)

	history := f.inv.StockHistory("a")
	require.Len(t, history, 1)
	assert.Equal(t, models.StockChangeSale, history[0].ChangeType)
	assert.Equal(t, -3, history[0].ChangeAmount)

	assert.Equal(t, 1, f.recorder.Count(notify.KindSuccess))
	assert.Equal(t, 0, f.recorder.Count(notify.KindLowStock))
}

func TestProcessSaleTotalsReconcile(t *testing.T) {
	ctx := context.Background()
	a := widget("a", 0, 50, 1)
	a.Price = decimal.RequireFromString("19.99")
	b := widget("b", 0, 50, 1)
	b.Price = decimal.RequireFromString("0.35")
	c := widget("c", 0, 50, 1)
	c.Price = decimal.RequireFromString("1234.567")

	f := newFixture(t, []models.Product{a, b, c})

	invoice, err := f.inv.ProcessSale(ctx, []models.CartItem{
		{ProductID: "a", Quantity: 3},
		{ProductID: "b", Quantity: 7},
		{ProductID: "c", Quantity: 1},
	}, models.Customer{})
	require.NoError(t, err)

	sale, err := f.inv.Sale(invoice.SaleID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range sale.Items {
		assert.True(t, item.Total.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))))
		sum = sum.Add(item.Total)
	}
	assert.True(t, sale.Total.Equal(sum))
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("1296.987")), "total %s", sale.Total)

	assert.True(t, invoice.Tax.Equal(invoice.Subtotal.Mul(decimal.RequireFromString("0.10"))))
	assert.True(t, invoice.Total.Equal(invoice.Subtotal.Mul(decimal.RequireFromString("1.10"))))
	assert.Equal(t, models.WalkInCustomer, invoice.CustomerName)
}

func TestProcessSaleCustomerID(t *testing.T) {
	f := newFixture(t, []models.Product{widget("a", 10, 10, 1)})

	invoice, err := f.inv.ProcessSale(context.Background(),
		[]models.CartItem{{ProductID: "a", Quantity: 1}},
		models.Customer{ID: "cust-9"})
	require.NoError(t, err)

	sale, err := f.inv.Sale(invoice.SaleID)
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, "cust-9", *sale.CustomerID)
	assert.Equal(t, models.WalkInCustomer, sale.CustomerName)
}

func TestProcessSaleLowStockIsEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []models.Product{widget("a", 100, 10, 5)})

	_, err := f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 6}}, models.Customer{})
	require.NoError(t, err)

	alerts := f.recorder.Events()
	require.Equal(t, 1, f.recorder.Count(notify.KindLowStock))
	assert.Equal(t, "Low stock alert: Widget a", alerts[0].Title)
	assert.Equal(t, "Only 4 units remaining", alerts[0].Description)
	assert.Equal(t, "a", alerts[0].ProductID)

	f.recorder.Reset()

	_, err = f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 2}}, models.Customer{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.recorder.Count(notify.KindLowStock))

	p, _ := f.inv.Product("a")
	assert.Equal(t, 2, p.StockQuantity)
}

func TestProcessSaleLowStockAtThreshold(t *testing.T) {
	f := newFixture(t, []models.Product{widget("a", 1, 6, 5)})

	_, err := f.inv.ProcessSale(context.Background(), []models.CartItem{{ProductID: "a", Quantity: 1}}, models.Customer{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.recorder.Count(notify.KindLowStock))
}

func TestProcessSaleMergesDuplicateLines(t *testing.T) {
	f := newFixture(t, []models.Product{widget("a", 10, 10, 2), widget("b", 5, 10, 2)})

	invoice, err := f.inv.ProcessSale(context.Background(), []models.CartItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 3},
	}, models.Customer{})
	require.NoError(t, err)

	assert.Len(t, invoice.Items, 3)
	assert.True(t, invoice.Subtotal.Equal(decimal.NewFromInt(55)))

	a, _ := f.inv.Product("a")
	b, _ := f.inv.Product("b")
	assert.Equal(t, 5, a.StockQuantity)
	assert.Equal(t, 9, b.StockQuantity)

	// one ledger entry per product, in catalog order
	changes := f.inv.StockChanges()
	require.Len(t, changes, 2)
	assert.Equal(t, "a", changes[0].ProductID)
	assert.Equal(t, -5, changes[0].ChangeAmount)
}

func TestProcessSaleRejectsWholeCart(t *testing.T) {
	tests := []struct {
		name  string
		items []models.CartItem
		want  error
	}{
		{"empty cart", nil, ErrEmptyCart},
		{"zero quantity", []models.CartItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 0}}, ErrInvalidQuantity},
		{"negative quantity", []models.CartItem{{ProductID: "a", Quantity: -1}}, ErrInvalidQuantity},
		{"unknown product", []models.CartItem{{ProductID: "a", Quantity: 1}, {ProductID: "zzz", Quantity: 1}}, ErrProductNotFound},
		{"over stock", []models.CartItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 4}}, ErrInsufficientStock},
		{"over stock across lines", []models.CartItem{{ProductID: "b", Quantity: 2}, {ProductID: "b", Quantity: 2}}, ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, []models.Product{widget("a", 10, 10, 2), widget("b", 5, 3, 1)})
			before := f.inv.Products()

			_, err := f.inv.ProcessSale(context.Background(), tt.items, models.Customer{Name: "Bob"})
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, f.inv.Products())
			assert.Empty(t, f.inv.Sales())
			assert.Empty(t, f.inv.Invoices())
			assert.Empty(t, f.inv.StockChanges())
			assert.Empty(t, f.recorder.Events())

			_, err = f.backend.Load(context.Background(), KeySales)
			assert.Error(t, err, "nothing should have been persisted")
		})
	}
}

func TestProcessSaleAllowNegativeStock(t *testing.T) {
	f := newFixture(t, []models.Product{widget("a", 10, 2, 1)}, WithAllowNegativeStock(true))

	_, err := f.inv.ProcessSale(context.Background(), []models.CartItem{{ProductID: "a", Quantity: 5}}, models.Customer{})
	require.NoError(t, err)

	p, _ := f.inv.Product("a")
	assert.Equal(t, -3, p.StockQuantity)
	assert.Equal(t, 1, f.recorder.Count(notify.KindLowStock))
}

func TestDeleteProductKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []models.Product{widget("a", 100, 10, 5)})

	invoice, err := f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 2}}, models.Customer{Name: "Alice"})
	require.NoError(t, err)
	salesBefore := f.inv.Sales()

	require.NoError(t, f.inv.DeleteProduct(ctx, "a"))

	_, err = f.inv.Product("a")
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.Equal(t, salesBefore, f.inv.Sales())
	stored, err := f.inv.Invoice(invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget a", stored.Items[0].ProductName)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.Len(t, f.inv.StockHistory("a"), 1)
}

func TestSaleSnapshotsPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []models.Product{widget("a", 100, 10, 5)})

	invoice, err := f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 1}}, models.Customer{})
	require.NoError(t, err)

	repriced := widget("a", 250, 9, 5)
	_, err = f.inv.UpdateProduct(ctx, "a", repriced)
	require.NoError(t, err)

	stored, _ := f.inv.Invoice(invoice.ID)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
}

func TestSearchAndPageInvoices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []models.Product{widget("a", 10, 100, 1)})

	customers := []string{"Alice", "Bob", "alice cooper", "Carol", "Dave"}
	for _, name := range customers {
		_, err := f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 1}}, models.Customer{Name: name})
		require.NoError(t, err)
		f.advance(time.Minute)
	}

	found := f.inv.SearchInvoices("ALICE")
	require.Len(t, found, 2)
	assert.Equal(t, "alice cooper", found[0].CustomerName, "newest first")
	assert.Equal(t, "Alice", found[1].CustomerName)

	byID := f.inv.SearchInvoices(found[1].ID)
	require.Len(t, byID, 1)

	page1, err := f.inv.ListInvoicesCursor("", 2)
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.Equal(t, "Dave", page1.Items[0].CustomerName)

	page2, err := f.inv.ListInvoicesCursor(page1.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, "alice cooper", page2.Items[0].CustomerName)

	page3, err := f.inv.ListInvoicesCursor(page2.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.NextCursor)
	assert.Equal(t, "Alice", page3.Items[0].CustomerName)

	_, err = f.inv.ListInvoicesCursor("%%%", 2)
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page.Items)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 5, page.Total)

	past := Paginate(items, 9, 2)
	assert.Empty(t, past.Items)

	huge := Paginate(items, 1<<62, 20)
	assert.Empty(t, huge.Items)
	assert.Equal(t, 1<<62, huge.Page)
	assert.Equal(t, 5, huge.Total)

	defaults := Paginate(items, 0, 0)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 20, defaults.PageSize)
	assert.Len(t, defaults.Items, 5)
}

func TestConcurrentSalesStayConsistent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []models.Product{widget("a", 10, 1000, 5)}, WithIDGenerator(newUUID))

	const sellers = 50

	done := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				snap := f.inv.Snapshot()
				assert.Equal(t, len(snap.Sales), len(snap.Invoices))

				sold := 0
				for _, s := range snap.Sales {
					for _, item := range s.Items {
						sold += item.Quantity
					}
				}
				assert.Equal(t, 1000, snap.Products[0].StockQuantity+sold)

				_, err := f.inv.Product("a")
				assert.NoError(t, err)
			}
		}()
	}

	var sellersWG sync.WaitGroup
	for i := 0; i < sellers; i++ {
		sellersWG.Add(1)
		go func() {
			defer sellersWG.Done()
			_, err := f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 1}}, models.Customer{})
			assert.NoError(t, err)
		}()
	}
	sellersWG.Wait()
	close(done)
	readers.Wait()

	p, err := f.inv.Product("a")
	require.NoError(t, err)
	assert.Equal(t, 1000-sellers, p.StockQuantity)
	assert.Len(t, f.inv.Sales(), sellers)
	assert.Len(t, f.inv.Invoices(), sellers)
	assert.Len(t, f.inv.StockChanges(), sellers)
	assert.Equal(t, sellers, f.recorder.Count(notify.KindSuccess))
}

// storeReader reads the store back from inside Notify.
type storeReader struct {
	inv    *Inventory
	stocks []int
}

func (r *storeReader) Notify(e notify.Event) {
	if r.inv == nil || e.ProductID == "" {
		return
	}
	if p, err := r.inv.Product(e.ProductID); err == nil {
		r.stocks = append(r.stocks, p.StockQuantity)
	}
}

func TestNotifierCanReadStore(t *testing.T) {
	ctx := context.Background()
	reader := &storeReader{}
	f := newFixture(t, []models.Product{widget("a", 100, 10, 5)}, WithNotifier(reader))
	reader.inv = f.inv

	finished := make(chan error, 1)
	go func() {
		_, err := f.inv.ProcessSale(ctx, []models.CartItem{{ProductID: "a", Quantity: 6}}, models.Customer{})
		if err == nil {
			_, err = f.inv.RestockProduct(ctx, "a", 2)
		}
		finished <- err
	}()

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("notifier reading the store blocked the mutation")
	}

	// low-stock alert and restock see the committed quantity
	assert.Equal(t, []int{4, 6}, reader.stocks)
}
