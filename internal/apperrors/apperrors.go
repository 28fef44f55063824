// Package apperrors defines the closed error taxonomy shared by every layer
// of the archive core. Every sentinel is chainable: Msg/Err/MsgErr return a
// new value wrapping the receiver, so call sites can both add context and
// preserve the underlying sentinel for errors.Is/errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the common interface every Muninn error satisfies.
type Error interface {
	error
	Unwrap() error
	// Msg returns a copy of this error with a replaced top-level message,
	// keeping the original as its wrapped cause.
	Msg(msg string) Error
	// Err wraps one or more underlying errors under this error's message.
	Err(errs ...error) Error
	// MsgErr replaces the message and wraps one or more underlying errors.
	MsgErr(msg string, errs ...error) Error
}

type appError struct {
	msg string
	err error
}

func (e *appError) Error() string { return e.msg }

func (e *appError) Unwrap() error { return e.err }

func (e *appError) Msg(msg string) Error {
	return &appError{msg: msg, err: e}
}

func (e *appError) Err(errs ...error) Error {
	return &appError{msg: e.msg, err: wrap(e, errs)}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{msg: msg, err: wrap(e, errs)}
}

func wrap(base error, errs []error) error {
	all := make([]error, 0, len(errs)+1)
	if base != nil {
		all = append(all, base)
	}
	for _, e := range errs {
		if e != nil {
			all = append(all, e)
		}
	}
	if len(all) == 0 {
		return nil
	}
	if len(all) == 1 {
		return all[0]
	}
	format := strings.TrimRight(strings.Repeat("%w ", len(all)), " ")
	args := make([]any, len(all))
	for i, e := range all {
		args[i] = e
	}
	return fmt.Errorf(format, args...)
}

// New creates a fresh root sentinel with no wrapped cause.
func New(msg string) Error {
	return &appError{msg: msg}
}

// Is reports whether err is, or wraps, target using the standard errors.Is
// semantics. Exposed here so call sites don't need to import "errors" just
// to compare against a Muninn sentinel.
func Is(err, target error) bool { return errors.Is(err, target) }

// As calls the standard errors.As against err.
func As(err error, target any) bool { return errors.As(err, target) }

// The closed taxonomy from the archive's error handling design. Every error
// returned from internal/* must descend from exactly one of these.
var (
	// ErrConfig: invalid or missing configuration, extension not found.
	ErrConfig Error = New("config error")
	// ErrSchema: invalid namespace definition or field reference.
	ErrSchema Error = New("schema error")
	// ErrExpression: lex/parse/type/parameter failure in the query language.
	ErrExpression Error = New("expression error")
	// ErrConflict: unique-constraint violation in the catalogue.
	ErrConflict Error = New("conflict error")
	// ErrNotFound: lookup by UUID/name/properties yielded nothing.
	ErrNotFound Error = New("not found")
	// ErrState: operation refused due to product/archive state.
	ErrState Error = New("state error")
	// ErrStorage: backend I/O error, hash mismatch, remote fetch failure.
	ErrStorage Error = New("storage error")
	// ErrBackend: database-level failure not modelled by the above.
	ErrBackend Error = New("backend error")
	// ErrPlugin: a plug-in raised, returned bad data, or is missing an
	// attribute; a leaked foreign (non-apperrors) panic/error recovered
	// from a plug-in call is also reported as ErrPlugin.
	ErrPlugin Error = New("plugin error")
)
