// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package errors provides the kind-tagged error type used across the
// sample-index packages. It follows the shape of
// github.com/grailbio/base/errors (E() constructor, a closed Kind enum,
// Once{} for accumulating errors across a staged mutation) but defines its
// own Kind set since the four kinds an encoder can raise (OutOfBounds,
// InvalidArgument, InvalidState, CorruptedSerialization) are specific to
// this module and cannot be added to grailbio/base/errors' own enum.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies why an encoder operation failed. Callers should switch on
// Kind rather than string-matching Error().
type Kind int

const (
	// Other is the zero value; it should not normally be returned by this
	// module's own operations.
	Other Kind = iota
	// OutOfBounds is returned for a Get on an empty encoder, or an index
	// at or past NumSamples or below -NumSamples.
	OutOfBounds
	// InvalidArgument is returned for malformed input: non-positive
	// num_samples, negative byte width, mismatched shape arity, malformed
	// hex chunk names.
	InvalidArgument
	// InvalidState is returned when a chunk-id operation's precondition is
	// violated (e.g. registering samples before any chunk id exists).
	InvalidState
	// CorruptedSerialization is returned when a serialized archive fails to
	// decode: bad version, truncated buffer, column-count mismatch,
	// connectivity-length mismatch.
	CorruptedSerialization
	// NotFound is returned by storage.Provider when a key is absent.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case OutOfBounds:
		return "out of bounds"
	case InvalidArgument:
		return "invalid argument"
	case InvalidState:
		return "invalid state"
	case CorruptedSerialization:
		return "corrupted serialization"
	case NotFound:
		return "not found"
	default:
		return "error"
	}
}

// Error is the concrete error type returned by this module. It carries a
// Kind for programmatic classification plus a free-form message built from
// the arguments passed to E.
type Error struct {
	Kind Kind
	// Op is the operation name from the first string argument passed to E,
	// e.g. "get" or "register_samples".
	Op  string
	msg string
	err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

// Unwrap allows errors.Is/As (stdlib) to see through to a wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// E builds an *Error from its arguments. The last Kind argument found sets
// e.Kind (default Other); the first string argument found sets e.Op; every
// other argument (remaining strings included) is rendered into e.msg via
// fmt.Sprint; the first error argument found is chained as e.err. This
// mirrors the calling convention of github.com/grailbio/base/errors.E,
// whose callers pass a loose mix of kind/op/context/cause in any order.
func E(args ...interface{}) error {
	e := &Error{}
	var msgParts []string
	for _, arg := range args {
		switch v := arg.(type) {
		case Kind:
			e.Kind = v
		case *Error:
			if e.err == nil {
				e.err = v
			}
		case error:
			if e.err == nil {
				e.err = v
			}
		case string:
			if e.Op == "" {
				e.Op = v
				continue
			}
			msgParts = append(msgParts, v)
		default:
			msgParts = append(msgParts, fmt.Sprint(v))
		}
	}
	e.msg = strings.Join(msgParts, " ")
	return e
}

// Is reports whether err is (or wraps) an *Error of the given Kind. The
// argument order mirrors the standard library's errors.Is(err, target).
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.err
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
