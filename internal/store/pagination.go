package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/safar/stockbook/internal/models"
)

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OffsetPage[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// Paginate slices items into the given 1-based page.
func Paginate[T any](items []T, page, pageSize int) OffsetPage[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}

	// pages past the end are empty
	start := total
	if page <= totalPages {
		start = (page - 1) * pageSize
	}
	end := min(start+pageSize, total)

	return OffsetPage[T]{
		Items:      append([]T{}, items[start:end]...),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

type InvoiceCursor struct {
	Date time.Time `json:"date"`
	ID   string    `json:"id"`
}

func cursorOf(invoice models.Invoice) InvoiceCursor {
	return InvoiceCursor{Date: invoice.Date, ID: invoice.ID}
}

// after reports whether c sorts before o in newest-first order.
func (c InvoiceCursor) after(o InvoiceCursor) bool {
	if !c.Date.Equal(o.Date) {
		return c.Date.After(o.Date)
	}
	return c.ID > o.ID
}

func EncodeCursor(cursor InvoiceCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor. The empty string decodes to the zero cursor,
// which means "start from the newest".
func DecodeCursor(encoded string) (InvoiceCursor, error) {
	var cursor InvoiceCursor
	if encoded == "" {
		return cursor, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}

// ListInvoicesCursor pages through invoices newest first.
func (inv *Inventory) ListInvoicesCursor(cursor string, limit int) (*CursorPage[models.Invoice], error) {
	from, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if limit < 1 {
		limit = 20
	}

	invoices := inv.Invoices()
	sortNewestFirst(invoices)

	start := 0
	if cursor != "" {
		start = len(invoices)
		for i, invoice := range invoices {
			if from.after(cursorOf(invoice)) {
				start = i
				break
			}
		}
	}

	page := invoices[start:]
	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}

	var nextCursor string
	if hasMore {
		nextCursor = EncodeCursor(cursorOf(page[len(page)-1]))
	}

	return &CursorPage[models.Invoice]{
		Items:      append([]models.Invoice{}, page...),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
