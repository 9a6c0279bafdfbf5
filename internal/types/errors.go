package types

import "errors"

// Typed trade outcomes. Handlers match these with errors.Is to pick the HTTP
// status; anything not in this list is treated as an internal fault.
var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidUserOrPortfolio = errors.New("invalid user or portfolio")
	ErrShareNotFound          = errors.New("share not found")
	ErrDuplicateUser          = errors.New("email already in use")
	ErrDuplicateShare         = errors.New("share already exists")
	ErrInsufficientShares     = errors.New("insufficient shares in portfolio")
	ErrInternal               = errors.New("internal error")
)
