package models

import "errors"

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNotFound           = errors.New("not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNoTableSelected    = errors.New("no table selected")
	ErrItemUnavailable    = errors.New("menu item unavailable")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidReservation = errors.New("invalid reservation")
	ErrNotInitialized     = errors.New("store not initialized")
)
