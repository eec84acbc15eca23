// Package apperr defines the typed errors returned by every use case.
// Expected business conditions are values of *Error; only the HTTP boundary
// turns a Category into a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryNotFound     Category = "not_found"
	CategoryConflict     Category = "conflict"
	CategoryUnauthorized Category = "unauthorized"
	CategoryForbidden    Category = "forbidden"
	CategoryFailure      Category = "failure"
)

// Error is a coded business error. Two errors are the same error when their
// codes match, so a sentinel can be compared with errors.Is even after it has
// been re-created with a more specific message.
type Error struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category Category `json:"-"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Category: e.Category}
}

func New(category Category, code, message string) *Error {
	return &Error{Code: code, Message: message, Category: category}
}

func Validation(code, message string) *Error   { return New(CategoryValidation, code, message) }
func NotFound(code, message string) *Error     { return New(CategoryNotFound, code, message) }
func Conflict(code, message string) *Error     { return New(CategoryConflict, code, message) }
func Unauthorized(code, message string) *Error { return New(CategoryUnauthorized, code, message) }
func Forbidden(code, message string) *Error    { return New(CategoryForbidden, code, message) }
func Failure(code, message string) *Error      { return New(CategoryFailure, code, message) }

// Join aggregates validation errors; nil entries are dropped and a nil error
// is returned when nothing is left.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// List flattens err (including errors.Join trees and wrapped errors) into the
// typed errors it carries, in order.
func List(err error) []*Error {
	if err == nil {
		return nil
	}
	var out []*Error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if typed, ok := e.(*Error); ok {
			out = append(out, typed)
			return
		}
		if wrapped, ok := e.(interface{ Unwrap() error }); ok {
			walk(wrapped.Unwrap())
		}
	}
	walk(err)
	return out
}

// CategoryOf reports the category of the first typed error in err. Untyped
// errors are failures.
func CategoryOf(err error) Category {
	if list := List(err); len(list) > 0 {
		return list[0].Category
	}
	return CategoryFailure
}

// IsTyped reports whether err carries at least one *Error.
func IsTyped(err error) bool {
	return len(List(err)) > 0
}
