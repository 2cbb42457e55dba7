package shared

import "errors"

var (

	// common errors
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrPersistence    = errors.New("persistence failed")

	// rule-specific errors
	ErrRuleValidation = errors.New("rule validation failed")

	// sync-layer errors; never surfaced to mutation callers,
	// only logged and retried by the sync agent
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
)
