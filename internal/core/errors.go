package core

import "errors"

// Failure kinds surfaced by the store, the converter and the report generator.
// Callers match them with errors.Is; the concrete error carries the cause.
var (
	ErrStoreOpen        = errors.New("store open failed")
	ErrWrite            = errors.New("store write failed")
	ErrRead             = errors.New("store read failed")
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrInvalidRate      = errors.New("invalid exchange rate")
	ErrInvalidInput     = errors.New("invalid input")
)
