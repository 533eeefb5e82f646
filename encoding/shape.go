// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encoding

import (
	"fmt"

	kerrors "github.com/grailbio/sampleindex/errors"
)

// ShapeEncoder maps a sample index to the shape (dimension tuple) of the
// tensor stored at that sample. It is a thin instantiation of the generic
// skeleton: two shapes combine into one run iff they are element-wise
// equal.
type ShapeEncoder struct {
	arity int
	core  *core[[]uint64]
}

// NewShapeEncoder creates an empty ShapeEncoder for tensors of the given
// arity (number of dimensions). arity must be >= 1.
func NewShapeEncoder(arity int) *ShapeEncoder {
	if arity < 1 {
		panic("encoding: NewShapeEncoder: arity must be >= 1")
	}
	e := &ShapeEncoder{arity: arity}
	e.core = newCore[[]uint64](arity+1, e)
	return e
}

// NumSamples returns the number of samples registered so far.
func (e *ShapeEncoder) NumSamples() uint64 { return e.core.numSamples() }

// NumSamplesAt returns how many samples row rowIndex's run covers.
func (e *ShapeEncoder) NumSamplesAt(rowIndex int) (uint64, error) {
	return e.core.numSamplesAt(rowIndex)
}

// Get returns the shape registered at index, which may be negative to index
// from the end.
func (e *ShapeEncoder) Get(index int64) ([]uint64, error) {
	row, _, _, err := e.core.lookup(index)
	if err != nil {
		return nil, err
	}
	shape := make([]uint64, e.arity)
	copy(shape, row[:e.arity])
	return shape, nil
}

// RegisterSamples appends numSamples consecutive samples of the given
// shape.
func (e *ShapeEncoder) RegisterSamples(shape []uint64, numSamples uint64) error {
	return e.core.registerSamples(shape, numSamples)
}

// Set overwrites the shape of the single sample at index.
func (e *ShapeEncoder) Set(index int64, shape []uint64) error {
	return e.core.set(index, shape)
}

func (e *ShapeEncoder) combineCondition(item []uint64, rowIndex int) bool {
	row := e.core.m.row(rowIndex)
	for i := 0; i < e.arity; i++ {
		if row[i] != item[i] {
			return false
		}
	}
	return true
}

func (e *ShapeEncoder) makeDecomposable(m *matrix, item []uint64, neighborRow int) []uint64 {
	leading := make([]uint64, e.arity)
	copy(leading, item)
	return leading
}

func (e *ShapeEncoder) deriveNextLastIndex(last uint64, numSamples uint64) uint64 {
	return last + numSamples
}

func (e *ShapeEncoder) validateIncomingItem(item []uint64, numSamples uint64) error {
	if len(item) != e.arity {
		return kerrors.E(kerrors.InvalidArgument, "register_samples",
			fmt.Sprintf("shape has %d dims, want %d", len(item), e.arity))
	}
	return nil
}

func (e *ShapeEncoder) recomputeDerived(m *matrix, fromRow int) {}
