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

// Numeric is the set of numeric scalar/array element types this format
// supports.
type Numeric interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// dataTypeOf returns the scalar DataType for T.
func dataTypeOf[T Numeric]() (DataType, error) {
	var zero T
	switch any(zero).(type) {
	case int8:
		return DataTypeInt8, nil
	case uint8:
		return DataTypeUint8, nil
	case int16:
		return DataTypeInt16, nil
	case uint16:
		return DataTypeUint16, nil
	case int32:
		return DataTypeInt32, nil
	case uint32:
		return DataTypeUint32, nil
	case int64:
		return DataTypeInt64, nil
	case uint64:
		return DataTypeUint64, nil
	case float32:
		return DataTypeFloat32, nil
	case float64:
		return DataTypeFloat64, nil
	default:
		return 0, fmt.Errorf("om: unsupported scalar type %T", zero)
	}
}

// encodeScalarValue serializes a numeric value as fixed-width
// little-endian bytes.
func encodeScalarValue[T Numeric](v T) []byte {
	switch x := any(v).(type) {
	case int8:
		return []byte{byte(x)}
	case uint8:
		return []byte{x}
	case int16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(x))
		return b
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, x)
		return b
	case int32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(x))
		return b
	case uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, x)
		return b
	case int64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(x))
		return b
	case uint64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, x)
		return b
	case float32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
		return b
	case float64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
		return b
	default:
		panic(fmt.Sprintf("om: unsupported scalar type %T", v))
	}
}

// decodeScalarValue parses fixed-width little-endian bytes into T. ok is
// false on a DataType mismatch.
func decodeScalarValue[T Numeric](dataType DataType, b []byte) (v T, ok bool) {
	want, err := dataTypeOf[T]()
	if err != nil || dataType != want {
		return v, false
	}
	switch any(v).(type) {
	case int8:
		if len(b) < 1 {
			return v, false
		}
		return any(int8(b[0])).(T), true
	case uint8:
		if len(b) < 1 {
			return v, false
		}
		return any(b[0]).(T), true
	case int16:
		if len(b) < 2 {
			return v, false
		}
		return any(int16(binary.LittleEndian.Uint16(b))).(T), true
	case uint16:
		if len(b) < 2 {
			return v, false
		}
		return any(binary.LittleEndian.Uint16(b)).(T), true
	case int32:
		if len(b) < 4 {
			return v, false
		}
		return any(int32(binary.LittleEndian.Uint32(b))).(T), true
	case uint32:
		if len(b) < 4 {
			return v, false
		}
		return any(binary.LittleEndian.Uint32(b)).(T), true
	case int64:
		if len(b) < 8 {
			return v, false
		}
		return any(int64(binary.LittleEndian.Uint64(b))).(T), true
	case uint64:
		if len(b) < 8 {
			return v, false
		}
		return any(binary.LittleEndian.Uint64(b)).(T), true
	case float32:
		if len(b) < 4 {
			return v, false
		}
		return any(math.Float32frombits(binary.LittleEndian.Uint32(b))).(T), true
	case float64:
		if len(b) < 8 {
			return v, false
		}
		return any(math.Float64frombits(binary.LittleEndian.Uint64(b))).(T), true
	}
	return v, false
}

// encodeStringValue serializes a string as a u16 length prefix plus raw
// UTF-8 bytes.
func encodeStringValue(s string) []byte {
	b := make([]byte, 2+len(s))
	binary.LittleEndian.PutUint16(b[:2], uint16(len(s)))
	copy(b[2:], s)
	return b
}

// decodeStringValue parses a u16-length-prefixed string.
func decodeStringValue(b []byte) (string, bool) {
	if len(b) < 2 {
		return "", false
	}
	n := int(binary.LittleEndian.Uint16(b[:2]))
	if len(b) < 2+n {
		return "", false
	}
	return string(b[2 : 2+n]), true
}
