// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package storage defines the opaque key->bytes backend that the
// serialization layer reads and writes archives through. Package encoding
// does not reference a Provider: its Save methods and Load* functions
// produce and consume byte slices, which a caller stores through one.
//
// The interface and its in-memory implementation follow the same shape as
// github.com/grailbio/base/file: Open/Create by path, bulk operations over
// an iterable of paths, NotFound on a missing key.
package storage

import "github.com/grailbio/sampleindex/errors"

// Provider is an opaque mapping from path strings to byte sequences. It is
// the only collaborator the serialization layer requires; chunk payload
// storage, compression of chunk contents, and dataset configuration live
// behind the same interface in a host system and are not this package's
// concern.
type Provider interface {
	// Get returns the bytes stored at path, or an error of kind
	// errors.NotFound if no value is present.
	Get(path string) ([]byte, error)
	// Put stores value at path, replacing any existing value.
	Put(path string, value []byte) error
	// Delete removes the value at path. It returns an error of kind
	// errors.NotFound if path was not present.
	Delete(path string) error
	// Iter returns every path currently present, in unspecified order.
	Iter() []string
	// Len returns the number of paths currently present.
	Len() int
	// MGet is the bulk form of Get. The returned slice has the same length
	// and order as paths; an error aborts the whole call.
	MGet(paths []string) ([][]byte, error)
	// MPut is the bulk form of Put. values must have the same length as
	// paths.
	MPut(paths []string, values [][]byte) error
}

func notFound(path string) error {
	return errors.E(errors.NotFound, "path", path)
}
