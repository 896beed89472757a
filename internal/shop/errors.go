package shop

import "errors"

// Errors returned by shop commands. A command that fails leaves all state unchanged.
var (
	ErrNotInInventory       = errors.New("item not in inventory")
	ErrNotListed            = errors.New("item not listed for sale")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientCapacity = errors.New("insufficient inventory capacity")
	ErrDisplayFull          = errors.New("display is full")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
)
