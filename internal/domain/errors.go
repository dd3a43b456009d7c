package domain

import "errors"

var (
	ErrValidation     = errors.New("invalid request")
	ErrConflict       = errors.New("certificate already issued")
	ErrNotFound       = errors.New("not found")
	ErrKeyUnavailable = errors.New("signing key unavailable")
	ErrCrypto         = errors.New("cryptographic operation failed")
	ErrStorage        = errors.New("storage failure")
)
