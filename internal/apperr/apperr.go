// Package apperr holds the error kinds shared by the store, the services and
// the HTTP boundary.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	NotFound
	Transient
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	default:
		return "internal"
	}
}

// Shortfall describes one cart line that cannot be served from live stock.
type Shortfall struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Error is a classified application error.
type Error struct {
	Kind      Kind
	Field     string
	Message   string
	Shortfall []Shortfall
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets pkg/errors.Cause stop at the classified error.
func (e *Error) Cause() error { return e.Err }

func Invalid(field, message string) error {
	return &Error{Kind: Validation, Field: field, Message: message}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(items []Shortfall) error {
	return &Error{Kind: Conflict, Message: "insufficient stock", Shortfall: items}
}

func Retryable(err error, message string) error {
	return &Error{Kind: Transient, Message: message, Err: err}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As returns the first classified error in the chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func IsNotFound(err error) bool  { return KindOf(err) == NotFound }
func IsTransient(err error) bool { return KindOf(err) == Transient }
