package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrSignatureInvalid   = errors.New("signature invalid")
	ErrInvalidCard        = errors.New("invalid agent card")
	ErrBudgetExhausted    = errors.New("privacy budget exhausted")
	ErrDomainForbidden    = errors.New("domain access forbidden")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
