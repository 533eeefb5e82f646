// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encoding

// Position is the half-open byte range [Start, End) a sample occupies
// within its chunk's byte stream.
type Position struct {
	Start uint64
	End   uint64
}

// BytePositionsEncoder maps a sample index to the byte range it occupies,
// given a fixed per-sample byte width that can change from run to run.
// Row columns are [num_bytes_per_sample, start_byte, last_seen_index];
// start_byte is derived, not supplied by callers, so it is recomputed by
// recomputeDerived rather than threaded through makeDecomposable (see the
// comment there).
type BytePositionsEncoder struct {
	core *core[uint64]
}

// NewBytePositionsEncoder creates an empty BytePositionsEncoder.
func NewBytePositionsEncoder() *BytePositionsEncoder {
	e := &BytePositionsEncoder{}
	e.core = newCore[uint64](3, e)
	return e
}

// NumSamples returns the number of samples registered so far.
func (e *BytePositionsEncoder) NumSamples() uint64 { return e.core.numSamples() }

// NumSamplesAt returns how many samples row rowIndex's run covers.
func (e *BytePositionsEncoder) NumSamplesAt(rowIndex int) (uint64, error) {
	return e.core.numSamplesAt(rowIndex)
}

// Get returns the byte range of the sample at index.
func (e *BytePositionsEncoder) Get(index int64) (Position, error) {
	row, rowIndex, sampleIndex, err := e.core.lookup(index)
	if err != nil {
		return Position{}, err
	}
	numBytes := row[0]
	startOfRun := row[1]
	offset := sampleIndex - e.core.m.runFirstIndex(rowIndex)
	start := startOfRun + offset*numBytes
	return Position{Start: start, End: start + numBytes}, nil
}

// RegisterSamples appends numSamples consecutive samples each numBytes
// bytes wide.
func (e *BytePositionsEncoder) RegisterSamples(numBytes uint64, numSamples uint64) error {
	return e.core.registerSamples(numBytes, numSamples)
}

// Set overwrites the byte width of the single sample at index; every
// later sample's byte range shifts accordingly.
func (e *BytePositionsEncoder) Set(index int64, numBytes uint64) error {
	return e.core.set(index, numBytes)
}

// NumBytesEncodedUnderRow returns the total number of bytes spanned by row
// rowIndex's run: numSamplesInRow(rowIndex) * numBytesPerSample(rowIndex).
// Callers preallocating a chunk's byte buffer can sum this across rows
// instead of re-deriving start/end for every sample.
func (e *BytePositionsEncoder) NumBytesEncodedUnderRow(rowIndex int) uint64 {
	row := e.core.m.row(rowIndex)
	return e.core.m.numSamplesInRow(rowIndex) * row[0]
}

func (e *BytePositionsEncoder) combineCondition(item uint64, rowIndex int) bool {
	return e.core.m.row(rowIndex)[0] == item
}

// makeDecomposable computes a best-effort start_byte from neighborRow (the
// row the new row sits after, if any, and if unmutated). It need not be
// exact for every caller: recomputeDerived walks forward after every Set
// and restores the start_byte chain invariant regardless of what was
// written here, so register's append path (where neighborRow is always the
// untouched tail row) is the only caller that depends on getting it right
// on the first try.
func (e *BytePositionsEncoder) makeDecomposable(m *matrix, item uint64, neighborRow int) []uint64 {
	var startByte uint64
	if neighborRow >= 0 {
		n := m.row(neighborRow)
		startByte = n[1] + m.numSamplesInRow(neighborRow)*n[0]
	}
	return []uint64{item, startByte}
}

func (e *BytePositionsEncoder) deriveNextLastIndex(last uint64, numSamples uint64) uint64 {
	return last + numSamples
}

func (e *BytePositionsEncoder) validateIncomingItem(item uint64, numSamples uint64) error {
	return nil
}

// recomputeDerived restores the start_byte chain invariant for every row
// from fromRow onward, after a Set mutation may have left rows after the
// touched one with a stale cumulative offset.
func (e *BytePositionsEncoder) recomputeDerived(m *matrix, fromRow int) {
	n := m.numRows()
	if n == 0 {
		return
	}
	if fromRow < 0 {
		fromRow = 0
	}
	var start uint64
	if fromRow > 0 {
		prev := m.row(fromRow - 1)
		start = prev[1] + m.numSamplesInRow(fromRow-1)*prev[0]
	}
	for i := fromRow; i < n; i++ {
		row := m.row(i)
		row[1] = start
		start += m.numSamplesInRow(i) * row[0]
	}
}
