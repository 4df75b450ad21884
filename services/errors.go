// Package services implements chat orchestration and session file handling
// on top of the session store, blob store and metadata database.
package services

import (
	"errors"
	"fmt"
)

// Kind classifies service failures for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindValidation
	KindNotFound
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// Error is a classified service failure. Msg is safe to show to clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func inputError(msg string) error      { return &Error{Kind: KindInput, Msg: msg} }
func validationError(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }
func notFoundError(msg string) error   { return &Error{Kind: KindNotFound, Msg: msg} }

func providerError(provider string, err error) *Error {
	return &Error{Kind: KindProvider, Msg: provider + " completion failed", Err: err}
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
