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

// Range is the half-open byte range [Low, High). It is invalid for Low to
// be greater than High.
type Range struct {
	Low, High uint64
}

func (r Range) Empty() bool { return r.Low == r.High }

func (r Range) Size() uint64 { return r.High - r.Low }

func (r Range) Before(s Range) bool { return r.High <= s.Low }

// gap returns the number of bytes strictly between r and s, assuming
// r.High <= s.Low. A touching or overlapping pair has gap 0.
func gap(r, s Range) uint64 {
	if s.Low <= r.High {
		return 0
	}
	return s.Low - r.High
}

// DataType is the single-byte tag identifying a variable's payload kind.
type DataType uint8

// The array block mirrors the scalar block at a constant offset of
// numScalarKinds, so scalarOf/arrayOf are simple arithmetic.
const numScalarKinds = 11 // i8,u8,i16,u16,i32,u32,i64,u64,f32,f64,string

const (
	DataTypeNone DataType = iota // group record: children only, no payload

	DataTypeInt8
	DataTypeUint8
	DataTypeInt16
	DataTypeUint16
	DataTypeInt32
	DataTypeUint32
	DataTypeInt64
	DataTypeUint64
	DataTypeFloat32
	DataTypeFloat64
	DataTypeString

	DataTypeInt8Array
	DataTypeUint8Array
	DataTypeInt16Array
	DataTypeUint16Array
	DataTypeInt32Array
	DataTypeUint32Array
	DataTypeInt64Array
	DataTypeUint64Array
	DataTypeFloat32Array
	DataTypeFloat64Array
	DataTypeStringArray // recognized but not decodable
)

// IsArray reports whether the data type is one of the array-typed variants.
func (d DataType) IsArray() bool {
	return d >= DataTypeInt8Array && d <= DataTypeStringArray
}

// IsScalar reports whether the data type is a scalar (and not a group).
func (d DataType) IsScalar() bool {
	return d >= DataTypeInt8 && d <= DataTypeString
}

// Valid reports whether d is a recognized tag.
func (d DataType) Valid() bool {
	return d <= DataTypeStringArray
}

// scalarOf returns the scalar DataType underlying an array DataType, or the
// type itself if it is already scalar/none.
func (d DataType) scalarOf() DataType {
	if d.IsArray() {
		return d - numScalarKinds
	}
	return d
}

// arrayOf returns the array DataType corresponding to a scalar DataType.
func (d DataType) arrayOf() DataType {
	return d + numScalarKinds
}

// byteWidth returns the width, in bytes, of one element of the scalar type
// underlying d. Returns 0 for DataTypeNone/DataTypeString/DataTypeStringArray.
func (d DataType) byteWidth() int {
	switch d.scalarOf() {
	case DataTypeInt8, DataTypeUint8:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32, DataTypeFloat32:
		return 4
	case DataTypeInt64, DataTypeUint64, DataTypeFloat64:
		return 8
	default:
		return 0
	}
}

// CompressionType is the single-byte tag identifying an array's chunk
// codec.
type CompressionType uint8

const (
	CompressionPForDelta2DInt16 CompressionType = iota
	CompressionPForDelta2DInt16Log
	CompressionPForDelta2D
	CompressionFpxXor2D
	CompressionNone CompressionType = 4 // sentinel: marks groups, not a real codec
)

// Valid reports whether c is a recognized tag.
func (c CompressionType) Valid() bool {
	return c <= CompressionFpxXor2D
}

// IsLossless reports whether c preserves values bit-exactly.
func (c CompressionType) IsLossless() bool {
	return c == CompressionFpxXor2D
}
