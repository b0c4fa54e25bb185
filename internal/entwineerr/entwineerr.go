// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package entwineerr defines the error kind vocabulary from the error
// handling design: which errors are per-file and retried, which abort a
// single file's insertion, and which are fatal to the whole build.
package entwineerr

import "fmt"

// Kind classifies an error by how the builder should react to it.
type Kind int

const (
	// FetchError is transient; the caller retries up to 8 times with
	// linear backoff before giving up on the file.
	FetchError Kind = iota
	// DecodeError is non-retriable; the file is marked Error.
	DecodeError
	// BoundsError means a point fell outside the configured bounds; it is
	// counted in the file's out-of-bounds stat, not treated as failure.
	BoundsError
	// StorageError is fatal to a save operation.
	StorageError
	// MergeError covers a non-subset build, a missing sibling, or a
	// metadata mismatch during merge; always fatal.
	MergeError
	// ConfigError is fatal at startup: a bad path, an invalid schema, a
	// missing required field.
	ConfigError
)

func (k Kind) String() string {
	switch k {
	case FetchError:
		return "FetchError"
	case DecodeError:
		return "DecodeError"
	case BoundsError:
		return "BoundsError"
	case StorageError:
		return "StorageError"
	case MergeError:
		return "MergeError"
	case ConfigError:
		return "ConfigError"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with its Kind and the context in which
// it occurred (a file path, a chunk key, etc).
type Error struct {
	Kind    Kind
	Context string
	Cause   error
}

func New(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}

func (e *Error) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retriable reports whether the builder should retry the operation that
// produced this error (only FetchError is, per the error handling design).
func (e *Error) Retriable() bool { return e.Kind == FetchError }

// Fatal reports whether this error must abort the whole build rather than
// just the file or task that produced it.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case StorageError, MergeError, ConfigError:
		return true
	default:
		return false
	}
}
