// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package encoding implements the run-length-compressed, append-optimized,
// random-access sample-index encoders: a generic encoder skeleton plus
// three specializations (shape, byte positions, chunk id) and their
// serialization.
//
// The algorithmic core -- a dense row-major matrix binary-searched over its
// last column -- follows the same "flat array + searchsorted" design as
// hub/core/meta/encode/base_encoder.py, expressed as a small value type
// wrapping a []uint64 slice in the style of encoding/pam/fieldio/bytebuffer.go's
// flat-buffer-with-cursor approach.
package encoding

import "sort"

// matrix is a dense, row-major table of uint64 cells with a fixed column
// count. The rightmost column of every row is last_seen_index; rows are
// kept in strictly ascending order of that column.
type matrix struct {
	cols int
	data []uint64 // len(data) == cols * numRows
}

func newMatrix(cols int) *matrix {
	return &matrix{cols: cols}
}

func (m *matrix) numRows() int {
	if m.cols == 0 {
		return 0
	}
	return len(m.data) / m.cols
}

func (m *matrix) row(i int) []uint64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

func (m *matrix) lastSeenIndex(i int) uint64 {
	return m.row(i)[m.cols-1]
}

func (m *matrix) setLastSeenIndex(i int, v uint64) {
	m.row(i)[m.cols-1] = v
}

// appendRow appends a new row built from leading (everything but
// last_seen_index) plus lastSeenIndex.
func (m *matrix) appendRow(leading []uint64, lastSeenIndex uint64) {
	if len(leading) != m.cols-1 {
		panic("encoding: appendRow: wrong column count")
	}
	m.data = append(m.data, leading...)
	m.data = append(m.data, lastSeenIndex)
}

// insertRow inserts a full row (length m.cols, last column included) before
// index i, shifting subsequent rows down. Used by the split actions.
func (m *matrix) insertRow(i int, fullRow []uint64) {
	if len(fullRow) != m.cols {
		panic("encoding: insertRow: wrong column count")
	}
	n := m.numRows()
	grown := make([]uint64, len(m.data)+m.cols)
	copy(grown, m.data[:i*m.cols])
	copy(grown[i*m.cols:], fullRow)
	copy(grown[(i+1)*m.cols:], m.data[i*m.cols:])
	m.data = grown
	_ = n
}

// removeRow deletes row i.
func (m *matrix) removeRow(i int) {
	n := m.numRows()
	shrunk := make([]uint64, 0, (n-1)*m.cols)
	shrunk = append(shrunk, m.data[:i*m.cols]...)
	shrunk = append(shrunk, m.data[(i+1)*m.cols:]...)
	m.data = shrunk
}

// replaceRow overwrites row i in place with fullRow.
func (m *matrix) replaceRow(i int, fullRow []uint64) {
	copy(m.row(i), fullRow)
}

// clone returns a deep copy, used to stage a replacement during Set so a
// failed overwrite never mutates the live state.
func (m *matrix) clone() *matrix {
	c := &matrix{cols: m.cols, data: make([]uint64, len(m.data))}
	copy(c.data, m.data)
	return c
}

// searchLastSeenIndex returns the smallest row index i such that
// lastSeenIndex(i) >= target, using binary search over the strictly
// ascending last-seen-index column. It assumes
// numRows() > 0.
func (m *matrix) searchLastSeenIndex(target uint64) int {
	n := m.numRows()
	return sort.Search(n, func(i int) bool {
		return m.lastSeenIndex(i) >= target
	})
}

// runFirstIndex returns the first global sample index covered by row i's
// run: 0 for row 0, or one past the previous row's last_seen_index.
func (m *matrix) runFirstIndex(i int) uint64 {
	if i == 0 {
		return 0
	}
	return m.lastSeenIndex(i-1) + 1
}

// numSamplesInRow returns how many samples row i's run covers.
func (m *matrix) numSamplesInRow(i int) uint64 {
	return m.lastSeenIndex(i) - m.runFirstIndex(i) + 1
}
