package store

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
)
