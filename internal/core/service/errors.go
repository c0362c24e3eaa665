package service

import "errors"

var (
	ErrStockExceeded      = errors.New("requested amount exceeds stock")
	ErrItemNotFound       = errors.New("item not in cart")
	ErrLookupFailure      = errors.New("catalog lookup failed")
	ErrPersistenceFailure = errors.New("cart persistence failed")
)
