package service

import (
	"errors"

	"balmar-shop/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrProductSold       = store.ErrProductSold
	ErrConflict          = store.ErrStaleState
	ErrInUse             = store.ErrInUse
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrOfferNotPending   = errors.New("offer is not pending")
	ErrKYCInProgress     = errors.New("verification already in progress")
)
