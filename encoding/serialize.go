// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	pkgerrors "github.com/pkg/errors"

	kerrors "github.com/grailbio/sampleindex/errors"
)

// Compression selects how an archive's matrix payload is compressed before
// it is written out. The archive is a fixed positional layout (see
// writeArchive); its sections are not named.
// Grounded on pamutil/index.go's recordio transformer choice, which wraps
// its block writer with a named compressor the same way.
type Compression byte

const (
	// CompressionNone stores the matrix payload uncompressed.
	CompressionNone Compression = iota
	// CompressionSnappy compresses the payload with snappy, mirroring the
	// teacher's use of snappy for recordio-style blocks.
	CompressionSnappy
	// CompressionZstd compresses the payload with zstd, mirroring
	// pamutil/index.go's "zstd" recordio transformer. This is the default.
	CompressionZstd
)

// DefaultCompression is used by Save() on every encoder specialization.
const DefaultCompression = CompressionZstd

// CurrentVersion is the archive format version this package writes, and
// the highest version it will read: decoders reject archives whose
// version exceeds the implementation's.
const CurrentVersion uint32 = 1

var archiveMagic = [4]byte{'S', 'I', 'D', 'X'}

func corrupted(op string, args ...interface{}) error {
	return kerrors.E(kerrors.CorruptedSerialization, op, args...)
}

func packMatrixData(data []uint64) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return buf
}

func unpackMatrixData(buf []byte) ([]uint64, error) {
	if len(buf)%8 != 0 {
		return nil, corrupted("unpack_matrix", "payload length", len(buf), "not a multiple of 8")
	}
	data := make([]uint64, len(buf)/8)
	for i := range data {
		data[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return data, nil
}

func compressPayload(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionSnappy:
		return snappy.Encode(nil, raw), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		out := enc.EncodeAll(raw, nil)
		enc.Close()
		return out, nil
	default:
		return nil, kerrors.E(kerrors.InvalidArgument, "compress_payload", "unknown compression", c)
	}
}

func decompressPayload(payload []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionSnappy:
		return snappy.Decode(nil, payload)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "decompress_payload: opening zstd reader")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "decompress_payload: zstd decode")
		}
		return out, nil
	default:
		return nil, corrupted("decompress_payload", "unknown compression", c)
	}
}

// writeArchive serializes a matrix (cols*rows cells) plus an optional
// connectivity vector into the versioned, self-describing wire format:
// magic, version, compression tag, shape, payload length, payload, and an
// optional connectivity section.
func writeArchive(cols, rows int, data []uint64, connectivity []bool, compression Compression) ([]byte, error) {
	payload, err := compressPayload(packMatrixData(data), compression)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(archiveMagic[:])
	binary.Write(&buf, binary.LittleEndian, CurrentVersion)
	buf.WriteByte(byte(compression))
	binary.Write(&buf, binary.LittleEndian, uint32(cols))
	binary.Write(&buf, binary.LittleEndian, uint32(rows))
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)

	if connectivity == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		binary.Write(&buf, binary.LittleEndian, uint32(len(connectivity)))
		for _, b := range connectivity {
			if b {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	}
	return buf.Bytes(), nil
}

// readArchive is the inverse of writeArchive. connectivity is nil when the
// archive carried no connectivity section.
func readArchive(data []byte) (cols, rows int, cells []uint64, connectivity []bool, err error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err = io.ReadFull(r, magic[:]); err != nil || magic != archiveMagic {
		return 0, 0, nil, nil, corrupted("read_archive", "bad magic")
	}

	var version uint32
	if err = binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated version")
	}
	if version > CurrentVersion {
		return 0, 0, nil, nil, corrupted("read_archive", "version", version, "exceeds", CurrentVersion)
	}

	compressionByte, err := r.ReadByte()
	if err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated compression tag")
	}

	var colsU32, rowsU32, payloadLen uint32
	if err = binary.Read(r, binary.LittleEndian, &colsU32); err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated cols")
	}
	if err = binary.Read(r, binary.LittleEndian, &rowsU32); err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated rows")
	}
	if err = binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated payload length")
	}

	payload := make([]byte, payloadLen)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated payload")
	}
	raw, err := decompressPayload(payload, Compression(compressionByte))
	if err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "decompress failed", err)
	}
	cells, err = unpackMatrixData(raw)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	if len(cells) != int(colsU32)*int(rowsU32) {
		return 0, 0, nil, nil, corrupted("read_archive", "column-count mismatch",
			"got", len(cells), "want", int(colsU32)*int(rowsU32))
	}

	hasConn, err := r.ReadByte()
	if err != nil {
		return 0, 0, nil, nil, corrupted("read_archive", "truncated connectivity tag")
	}
	if hasConn == 1 {
		var connLen uint32
		if err = binary.Read(r, binary.LittleEndian, &connLen); err != nil {
			return 0, 0, nil, nil, corrupted("read_archive", "truncated connectivity length")
		}
		if int(connLen) != int(rowsU32) {
			return 0, 0, nil, nil, corrupted("read_archive", "connectivity-length mismatch",
				"got", connLen, "want", rowsU32)
		}
		connectivity = make([]bool, connLen)
		for i := range connectivity {
			b, err := r.ReadByte()
			if err != nil {
				return 0, 0, nil, nil, corrupted("read_archive", "truncated connectivity")
			}
			connectivity[i] = b == 1
		}
	}

	return int(colsU32), int(rowsU32), cells, connectivity, nil
}

// Save serializes e with DefaultCompression.
func (e *ShapeEncoder) Save() ([]byte, error) { return e.SaveWithCompression(DefaultCompression) }

// SaveWithCompression serializes e using the given compression.
func (e *ShapeEncoder) SaveWithCompression(c Compression) ([]byte, error) {
	return writeArchive(e.core.m.cols, e.core.m.numRows(), e.core.m.data, nil, c)
}

// LoadShapeEncoder reconstructs a ShapeEncoder from bytes produced by Save.
// arity must match the arity the encoder was created with.
func LoadShapeEncoder(data []byte, arity int) (*ShapeEncoder, error) {
	cols, _, cells, _, err := readArchive(data)
	if err != nil {
		return nil, err
	}
	if cols != arity+1 {
		return nil, corrupted("load_shape_encoder", "column-count mismatch", "got", cols, "want", arity+1)
	}
	e := NewShapeEncoder(arity)
	e.core.m.data = cells
	return e, nil
}

// Save serializes e with DefaultCompression.
func (e *BytePositionsEncoder) Save() ([]byte, error) {
	return e.SaveWithCompression(DefaultCompression)
}

// SaveWithCompression serializes e using the given compression.
func (e *BytePositionsEncoder) SaveWithCompression(c Compression) ([]byte, error) {
	return writeArchive(e.core.m.cols, e.core.m.numRows(), e.core.m.data, nil, c)
}

// LoadBytePositionsEncoder reconstructs a BytePositionsEncoder from bytes
// produced by Save.
func LoadBytePositionsEncoder(data []byte) (*BytePositionsEncoder, error) {
	cols, _, cells, _, err := readArchive(data)
	if err != nil {
		return nil, err
	}
	if cols != 3 {
		return nil, corrupted("load_byte_positions_encoder", "column-count mismatch", "got", cols, "want", 3)
	}
	e := NewBytePositionsEncoder()
	e.core.m.data = cells
	return e, nil
}

// Save serializes e, including its connectivity vector, with
// DefaultCompression.
func (e *ChunkIDEncoder) Save() ([]byte, error) { return e.SaveWithCompression(DefaultCompression) }

// SaveWithCompression serializes e using the given compression.
func (e *ChunkIDEncoder) SaveWithCompression(c Compression) ([]byte, error) {
	connectivity := e.connectivity
	if connectivity == nil {
		// A freshly-constructed encoder has a nil connectivity slice (no
		// rows yet), but writeArchive treats nil as "omit the section
		// entirely". Use a non-nil empty slice so the archive always
		// carries a connectivity section, and LoadChunkIDEncoder never
		// has to special-case the empty encoder.
		connectivity = []bool{}
	}
	return writeArchive(e.ids.cols, e.ids.numRows(), e.ids.data, connectivity, c)
}

// LoadChunkIDEncoder reconstructs a ChunkIDEncoder from bytes produced by
// Save.
func LoadChunkIDEncoder(data []byte) (*ChunkIDEncoder, error) {
	cols, rows, cells, connectivity, err := readArchive(data)
	if err != nil {
		return nil, err
	}
	if cols != 2 {
		return nil, corrupted("load_chunk_id_encoder", "column-count mismatch", "got", cols, "want", 2)
	}
	if connectivity == nil {
		return nil, corrupted("load_chunk_id_encoder", "missing connectivity section")
	}
	if len(connectivity) != rows {
		return nil, corrupted("load_chunk_id_encoder", "connectivity-length mismatch",
			"got", len(connectivity), "want", rows)
	}
	return &ChunkIDEncoder{ids: &matrix{cols: 2, data: cells}, connectivity: connectivity}, nil
}
