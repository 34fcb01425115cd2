// Copyright 2019 The Wuffs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package om

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ChildRef is a lookup pointer to a child variable record elsewhere in
// the file. It is never an ownership edge: the child's bytes live
// wherever the writer put them, outside the parent record.
type ChildRef struct {
	Offset uint64
	Size   uint64
}

const childRefSize = 16 // two u64s

// recordPrefixSize is the tag + name_length + children_count fixed header.
const recordPrefixSize = 1 + 2 + 4

// RecordSize computes the byte size of a variable record's common prefix
// plus name, given (name_length, children_count). Every implementation of
// the format must compute this identically so that record offsets agree
// across readers and writers.
func RecordSize(nameLen, childrenCount int) uint64 {
	return uint64(recordPrefixSize+nameLen) + uint64(childrenCount)*childRefSize
}

// ArrayPayloadSize computes the size of an array record's type-specific
// payload for a given rank.
func ArrayPayloadSize(rank int) uint64 {
	// compression(1) + scale_factor(4) + add_offset(4) + rank(8) +
	// dimensions(8*rank) + chunks(8*rank) + lut_size(8) + lut_offset(8)
	return 1 + 4 + 4 + 8 + uint64(rank)*8 + uint64(rank)*8 + 8 + 8
}

// encodeRecordPrefix writes tag, name_length, children_count, the children
// table, then the name bytes.
func encodeRecordPrefix(dataType DataType, name string, children []ChildRef) []byte {
	b := make([]byte, recordPrefixSize+len(children)*childRefSize+len(name))
	b[0] = byte(dataType)
	binary.LittleEndian.PutUint16(b[1:3], uint16(len(name)))
	binary.LittleEndian.PutUint32(b[3:7], uint32(len(children)))
	off := recordPrefixSize
	for _, c := range children {
		binary.LittleEndian.PutUint64(b[off:off+8], c.Offset)
		binary.LittleEndian.PutUint64(b[off+8:off+16], c.Size)
		off += childRefSize
	}
	copy(b[off:], name)
	return b
}

// decodedRecordHeader is the parsed common prefix of any variable record.
type decodedRecordHeader struct {
	DataType DataType
	Name     string
	Children []ChildRef
	Rest     []byte // payload bytes following the name
}

func decodeRecordPrefix(b []byte) (decodedRecordHeader, error) {
	if len(b) < recordPrefixSize {
		return decodedRecordHeader{}, fmt.Errorf("om: record too short for prefix")
	}
	dataType := DataType(b[0])
	if !dataType.Valid() {
		return decodedRecordHeader{}, ErrInvalidDataType
	}
	nameLen := int(binary.LittleEndian.Uint16(b[1:3]))
	childrenCount := int(binary.LittleEndian.Uint32(b[3:7]))
	off := recordPrefixSize
	need := off + childrenCount*childRefSize + nameLen
	if len(b) < need {
		return decodedRecordHeader{}, fmt.Errorf("om: record truncated: need %d bytes, have %d", need, len(b))
	}
	children := make([]ChildRef, childrenCount)
	for i := range children {
		children[i] = ChildRef{
			Offset: binary.LittleEndian.Uint64(b[off : off+8]),
			Size:   binary.LittleEndian.Uint64(b[off+8 : off+16]),
		}
		off += childRefSize
	}
	name := string(b[off : off+nameLen])
	off += nameLen
	return decodedRecordHeader{
		DataType: dataType,
		Name:     name,
		Children: children,
		Rest:     b[off:],
	}, nil
}

// EncodeGroupRecord encodes a group (children-only) record.
func EncodeGroupRecord(name string, children []ChildRef) []byte {
	return encodeRecordPrefix(DataTypeNone, name, children)
}

// EncodeScalarRecord encodes a scalar record given its already-serialized
// little-endian value bytes (fixed-width for numeric types, or a u16
// length-prefixed UTF-8 string for DataTypeString).
func EncodeScalarRecord(dataType DataType, name string, children []ChildRef, valueBytes []byte) []byte {
	prefix := encodeRecordPrefix(dataType, name, children)
	return append(prefix, valueBytes...)
}

// ArrayPayload is the type-specific part of an array variable record. The
// lookup table and compressed chunks it points at live in the payload
// region, not inside the record.
type ArrayPayload struct {
	Compression CompressionType
	ScaleFactor float32
	AddOffset   float32
	Dimensions  []uint64
	Chunks      []uint64
	LutSize     uint64
	LutOffset   uint64
}

func (p ArrayPayload) rank() int { return len(p.Dimensions) }

// Encode serializes the array payload (everything after the record's name).
func (p ArrayPayload) Encode() ([]byte, error) {
	if len(p.Dimensions) != len(p.Chunks) {
		return nil, ErrMismatchingCubeDimensionLength
	}
	rank := p.rank()
	b := make([]byte, ArrayPayloadSize(rank))
	b[0] = byte(p.Compression)
	binary.LittleEndian.PutUint32(b[1:5], math.Float32bits(p.ScaleFactor))
	binary.LittleEndian.PutUint32(b[5:9], math.Float32bits(p.AddOffset))
	binary.LittleEndian.PutUint64(b[9:17], uint64(rank))
	off := 17
	for _, d := range p.Dimensions {
		binary.LittleEndian.PutUint64(b[off:off+8], d)
		off += 8
	}
	for _, c := range p.Chunks {
		binary.LittleEndian.PutUint64(b[off:off+8], c)
		off += 8
	}
	binary.LittleEndian.PutUint64(b[off:off+8], p.LutSize)
	binary.LittleEndian.PutUint64(b[off+8:off+16], p.LutOffset)
	return b, nil
}

// DecodeArrayPayload parses an array payload from the bytes following a
// record's name.
func DecodeArrayPayload(b []byte) (ArrayPayload, error) {
	if len(b) < 17 {
		return ArrayPayload{}, fmt.Errorf("om: array payload too short")
	}
	compression := CompressionType(b[0])
	if !compression.Valid() {
		return ArrayPayload{}, ErrInvalidCompressionType
	}
	scale := math.Float32frombits(binary.LittleEndian.Uint32(b[1:5]))
	addOffset := math.Float32frombits(binary.LittleEndian.Uint32(b[5:9]))
	rank := int(binary.LittleEndian.Uint64(b[9:17]))
	off := 17
	need := off + rank*16 + 16
	if len(b) < need {
		return ArrayPayload{}, fmt.Errorf("om: array payload truncated")
	}
	dims := make([]uint64, rank)
	for i := range dims {
		dims[i] = binary.LittleEndian.Uint64(b[off : off+8])
		off += 8
	}
	chunks := make([]uint64, rank)
	for i := range chunks {
		chunks[i] = binary.LittleEndian.Uint64(b[off : off+8])
		off += 8
	}
	lutSize := binary.LittleEndian.Uint64(b[off : off+8])
	lutOffset := binary.LittleEndian.Uint64(b[off+8 : off+16])
	return ArrayPayload{
		Compression: compression,
		ScaleFactor: scale,
		AddOffset:   addOffset,
		Dimensions:  dims,
		Chunks:      chunks,
		LutSize:     lutSize,
		LutOffset:   lutOffset,
	}, nil
}

// EncodeArrayRecordTyped encodes a full array record for the given array
// DataType (e.g. DataTypeFloat32Array).
func EncodeArrayRecordTyped(dataType DataType, name string, children []ChildRef, payload ArrayPayload) ([]byte, error) {
	if !dataType.IsArray() {
		return nil, ErrInvalidDataType
	}
	prefix := encodeRecordPrefix(dataType, name, children)
	payloadBytes, err := payload.Encode()
	if err != nil {
		return nil, err
	}
	return append(prefix, payloadBytes...), nil
}
