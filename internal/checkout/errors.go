package checkout

import "errors"

var (
	ErrEmptyCart             = errors.New("selection is empty, nothing to check out")
	ErrIllegalTransition     = errors.New("illegal transition of checkout status")
	ErrSessionNotFound       = errors.New("checkout session not found")
	ErrIdempotencyKeyMissing = errors.New("idempotency key is required")
)
