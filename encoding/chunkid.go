// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encoding

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"

	kerrors "github.com/grailbio/sampleindex/errors"
)

// emptySentinel is the seed value for the very first chunk row's
// last_seen_index: an explicit "no samples yet" state represented by
// unsigned wrap-around rather than a signed -1, so that the first
// RegisterSamplesToLastChunkID(n) lands on n-1 after wrapping.
const emptySentinel = ^uint64(0)

// ChunkIDEncoder maps a sample index to one or more chunk identifiers,
// threading a parallel connectivity vector to record samples that straddle
// a chunk boundary. It diverges from the shared skeleton because chunk
// boundaries are decided by the writer opening and closing chunks, not by
// comparing an incoming item's value against a run.
type ChunkIDEncoder struct {
	ids          *matrix // columns: [chunk_id, last_seen_index]
	connectivity []bool
}

// NewChunkIDEncoder creates an empty ChunkIDEncoder.
func NewChunkIDEncoder() *ChunkIDEncoder {
	return &ChunkIDEncoder{ids: newMatrix(2)}
}

// NumSamples returns the number of samples registered so far. Before any
// chunk has received samples, the tail row's last_seen_index is the wrapped
// empty sentinel, which yields 0 here by the same unsigned-overflow
// arithmetic as a genuinely empty encoder.
func (e *ChunkIDEncoder) NumSamples() uint64 {
	n := e.ids.numRows()
	if n == 0 {
		return 0
	}
	return e.ids.lastSeenIndex(n-1) + 1
}

func (e *ChunkIDEncoder) numChunks() int { return e.ids.numRows() }

// GenerateChunkID mints a new random 64-bit chunk id (the top 64 bits of a
// 128-bit UUID), opens a row for it, and returns the id. The new row's
// last_seen_index starts at the previous tail's last_seen_index (or the
// empty sentinel, if this is the first chunk); RegisterSamplesToLastChunkID
// advances it as samples are added.
func (e *ChunkIDEncoder) GenerateChunkID() uint64 {
	id := uuid.New()
	chunkID := binary.BigEndian.Uint64(id[:8])

	prevLast := emptySentinel
	if n := e.numChunks(); n > 0 {
		prevLast = e.ids.lastSeenIndex(n - 1)
	}
	e.ids.appendRow([]uint64{chunkID}, prevLast)
	e.connectivity = append(e.connectivity, false)
	return chunkID
}

// RegisterSamplesToLastChunkID adds n samples to the currently open (tail)
// chunk. n == 0 is legal only when a prior chunk exists,
// signaling that the tail chunk was opened solely to continue a straddling
// sample and currently holds none of its own.
func (e *ChunkIDEncoder) RegisterSamplesToLastChunkID(n uint64) error {
	numChunks := e.numChunks()
	if numChunks == 0 {
		return kerrors.E(kerrors.InvalidState, "register_samples_to_last_chunk_id", "no chunks")
	}
	if n == 0 && numChunks < 2 {
		return kerrors.E(kerrors.InvalidState, "register_samples_to_last_chunk_id",
			"num_samples=0 requires a prior chunk")
	}
	tail := numChunks - 1
	e.ids.setLastSeenIndex(tail, e.ids.lastSeenIndex(tail)+n)
	return nil
}

// RegisterConnectionToLastChunkID marks the sample at the end of the
// second-to-last chunk as straddling into the last chunk, and returns the
// connecting (second-to-last) chunk's name.
func (e *ChunkIDEncoder) RegisterConnectionToLastChunkID() (string, error) {
	numChunks := e.numChunks()
	if numChunks < 2 {
		return "", kerrors.E(kerrors.InvalidState, "register_connection_to_last_chunk_id",
			"fewer than two chunks")
	}
	connecting := numChunks - 2
	e.connectivity[connecting] = true
	return NameFromID(e.ids.row(connecting)[0]), nil
}

// Get returns every chunk id the sample at index belongs to, in order: the
// chunk whose run contains it, followed by any chunks it straddles into.
func (e *ChunkIDEncoder) Get(index int64) ([]uint64, error) {
	sampleIndex, err := e.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	rowIndex := e.ids.searchLastSeenIndex(sampleIndex)

	ids := []uint64{e.ids.row(rowIndex)[0]}
	i := rowIndex
	for i < e.numChunks()-1 && e.connectivity[i] && e.ids.lastSeenIndex(i) == sampleIndex {
		i++
		ids = append(ids, e.ids.row(i)[0])
	}
	return ids, nil
}

// GetLocalSampleIndex returns the offset of global within its chunk's run.
func (e *ChunkIDEncoder) GetLocalSampleIndex(global int64) (uint64, error) {
	sampleIndex, err := e.resolveIndex(global)
	if err != nil {
		return 0, err
	}
	rowIndex := e.ids.searchLastSeenIndex(sampleIndex)
	return sampleIndex - e.ids.runFirstIndex(rowIndex), nil
}

// NameForChunkAt returns the hex name of the chunk at ids row rowIndex, a
// convenience for callers iterating chunks in order (e.g. to drive
// serialization or a manifest) without re-deriving the id from a prior Get.
func (e *ChunkIDEncoder) NameForChunkAt(rowIndex int) (string, error) {
	if rowIndex < 0 || rowIndex >= e.numChunks() {
		return "", kerrors.E(kerrors.OutOfBounds, "name_for_chunk_at", "row_index", rowIndex)
	}
	return NameFromID(e.ids.row(rowIndex)[0]), nil
}

// NumSamplesAt returns how many samples chunk row rowIndex's run covers.
func (e *ChunkIDEncoder) NumSamplesAt(rowIndex int) (uint64, error) {
	if rowIndex < 0 || rowIndex >= e.numChunks() {
		return 0, kerrors.E(kerrors.OutOfBounds, "num_samples_at", "row_index", rowIndex)
	}
	return e.ids.numSamplesInRow(rowIndex), nil
}

func (e *ChunkIDEncoder) resolveIndex(index int64) (uint64, error) {
	n := e.NumSamples()
	if n == 0 {
		return 0, kerrors.E(kerrors.OutOfBounds, "get", "empty encoder")
	}
	idx := index
	if idx < 0 {
		idx += int64(n)
	}
	if idx < 0 || uint64(idx) >= n {
		return 0, kerrors.E(kerrors.OutOfBounds, "get", "index", index, "num_samples", n)
	}
	return uint64(idx), nil
}

// NameFromID renders a chunk id as a lowercase hexadecimal name with no
// leading zeros and no "0x" prefix: NameFromID(0) == "0",
// NameFromID(255) == "ff".
func NameFromID(id uint64) string {
	return strconv.FormatUint(id, 16)
}

// IDFromName parses a chunk name back into its id, case-insensitively,
// rejecting non-hexadecimal input.
func IDFromName(name string) (uint64, error) {
	id, err := strconv.ParseUint(strings.ToLower(name), 16, 64)
	if err != nil {
		return 0, kerrors.E(kerrors.InvalidArgument, "id_from_name", "name", name, err)
	}
	return id, nil
}
