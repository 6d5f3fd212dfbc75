package tme

import "errors"

// Errors
//
// Callers classify failures with errors.Is; context is attached with errors.Wrap at the failure site.
var (
	ErrFormat          = errors.New("malformed or unsupported surface format")
	ErrRange           = errors.New("index out of range")
	ErrValidation      = errors.New("invalid machine value")
	ErrUnsupported     = errors.New("operation not supported")
	ErrBadCatalogParam = errors.New("bad catalog param")
	ErrCatalogVersion  = errors.New("catalog version is incompatible")
)
