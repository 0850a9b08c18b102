// Package perrors defines the persistence engine's typed error
// hierarchy (§7). Every error the core raises carries one of the
// Kind values below so callers can branch on category with errors.As
// instead of string matching.
package perrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a persistence error.
type Kind string

const (
	// NotInitialized: operation before init or after close.
	NotInitialized Kind = "NOT_INITIALIZED"
	// AlreadyInitialized: double init.
	AlreadyInitialized Kind = "ALREADY_INITIALIZED"
	// SchemaError: missing or malformed DDL resource.
	SchemaError Kind = "SCHEMA_ERROR"
	// ConnectionError: driver load or connection acquisition failed.
	ConnectionError Kind = "CONNECTION_ERROR"
	// StoreError: database-side failure during a CRUD operation.
	StoreError Kind = "STORE_ERROR"
	// EncodingError: bundle serialization failed (programmer error).
	EncodingError Kind = "ENCODING_ERROR"
	// DecodingError: bundle deserialization failed (data corruption).
	DecodingError Kind = "DECODING_ERROR"
	// NoSuchItem: referenced row absent where presence was required.
	NoSuchItem Kind = "NO_SUCH_ITEM"
	// BlobError: blob put/get/remove failed.
	BlobError Kind = "BLOB_ERROR"
)

// Error is the concrete error type raised by every package in the
// engine core. Message carries the human-readable description,
// Item (when non-empty) identifies the bundle, blob, or reference key
// involved, and Err (when non-nil) is the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Item    string
	Err     error
}

func (e *Error) Error() string {
	if e.Item != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (item=%s): %v", e.Kind, e.Message, e.Item, e.Err)
		}
		return fmt.Sprintf("%s: %s (item=%s)", e.Kind, e.Message, e.Item)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error wrapping err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WrapItem is like Wrap but also records the item key (a node id,
// blob id, or table name) the failure concerns.
func WrapItem(kind Kind, message, item string, err error) *Error {
	return &Error{Kind: kind, Message: message, Item: item, Err: err}
}

// Is reports whether err is (or wraps) a persistence Error of the
// given kind.
func Is(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
