package domain

import "errors"

var (
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrNegativePrice        = errors.New("product price must not be negative")
	ErrNegativeAmount       = errors.New("discount and tax values must not be negative")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrUnknownDiscountMode  = errors.New("unknown discount mode")
)
