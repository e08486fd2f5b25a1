// Package model defines the core's closed error-code vocabulary, so
// callers can branch with errors.Is instead of string matching.
package model

import "errors"

// ErrorCode is the closed set of internal-logic failure kinds the core
// reports through its External Interfaces.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeInternal
	ErrCodeCatalogTimeout
	ErrCodeCancelled
	ErrCodeDocumentNotOpen
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInternal:
		return "internal"
	case ErrCodeCatalogTimeout:
		return "catalog_timeout"
	case ErrCodeCancelled:
		return "cancelled"
	case ErrCodeDocumentNotOpen:
		return "document_not_open"
	default:
		return "none"
	}
}

// Sentinel errors wrapped via fmt.Errorf("...: %w", Err*) at call
// sites, matched with errors.Is by callers that need to distinguish
// error kinds.
var (
	ErrInternal        = errors.New("sqlls: internal error")
	ErrCatalogTimeout  = errors.New("sqlls: catalog operation timed out")
	ErrCancelled       = errors.New("sqlls: request cancelled")
	ErrDocumentNotOpen = errors.New("sqlls: document not open")
)

// CodeOf maps a sentinel error to its ErrorCode, defaulting to
// ErrCodeInternal for any error not recognized as one of the named
// sentinels (an unrecognized error is still reported, never silently
// dropped).
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrCodeNone
	case errors.Is(err, ErrCatalogTimeout):
		return ErrCodeCatalogTimeout
	case errors.Is(err, ErrCancelled):
		return ErrCodeCancelled
	case errors.Is(err, ErrDocumentNotOpen):
		return ErrCodeDocumentNotOpen
	default:
		return ErrCodeInternal
	}
}
