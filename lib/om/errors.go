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
	"errors"
	"fmt"
)

var (
	// ErrNotAnOmFile is returned when the magic bytes, version byte or
	// trailer are missing or corrupt.
	ErrNotAnOmFile = errors.New("om: not an OM file")

	// ErrInvalidCompressionType is returned for an unrecognized compression
	// tag byte.
	ErrInvalidCompressionType = errors.New("om: invalid compression type")

	// ErrInvalidDataType is returned for an unrecognized data type tag byte.
	ErrInvalidDataType = errors.New("om: invalid data type")

	// ErrMismatchingCubeDimensionLength is returned when a requested slice's
	// rank does not match the stored array's rank.
	ErrMismatchingCubeDimensionLength = errors.New("om: mismatching cube dimension length")

	// ErrChunkHasWrongNumberOfElements is returned when a writer is fed a
	// partial or oversized chunk.
	ErrChunkHasWrongNumberOfElements = errors.New("om: chunk has wrong number of elements")

	// ErrDimensionMustBeLargerThan0 is returned for a zero-sized array or
	// chunk dimension.
	ErrDimensionMustBeLargerThan0 = errors.New("om: dimension must be larger than 0")

	// ErrFileExistsAlready is a higher-level convenience-open error.
	ErrFileExistsAlready = errors.New("om: file exists already")

	// ErrCannotOpenFile is a higher-level convenience-open error.
	ErrCannotOpenFile = errors.New("om: cannot open file")

	// ErrClosedFile is returned by a Reader once Close has been called.
	ErrClosedFile = errors.New("om: file is closed")

	// ErrSeekToNegativePosition is returned by index layers for a negative
	// read offset, before any I/O happens.
	ErrSeekToNegativePosition = errors.New("om: seek to negative position")

	// ErrStepNotSupported is returned by index layers when a caller asks
	// for a strided (step != 1) slice.
	ErrStepNotSupported = errors.New("om: step != 1 is not supported")

	errInternalInconsistentState = errors.New("om: internal error: inconsistent state")
)

// OffsetAndCountExceedDimension is returned when a requested slice falls
// outside an array's dimension along some axis.
type OffsetAndCountExceedDimension struct {
	Offset    uint64
	Count     uint64
	Dimension uint64
	Axis      int
}

func (e *OffsetAndCountExceedDimension) Error() string {
	return fmt.Sprintf("om: offset %d and count %d exceed dimension %d on axis %d",
		e.Offset, e.Count, e.Dimension, e.Axis)
}

// DecoderError wraps a message from a failing codec, preserving it
// verbatim.
type DecoderError struct {
	Message string
}

func (e *DecoderError) Error() string { return "om: decoder: " + e.Message }

// BackendReadError is returned when a Backend read fails.
type BackendReadError struct {
	Offset uint64
	Count  uint64
	Cause  error
}

func (e *BackendReadError) Error() string {
	return fmt.Sprintf("om: backend read error at offset %d, count %d: %v", e.Offset, e.Count, e.Cause)
}

func (e *BackendReadError) Unwrap() error { return e.Cause }

// BackendWriteError is returned when a Backend write fails.
type BackendWriteError struct {
	Cause error
}

func (e *BackendWriteError) Error() string {
	return fmt.Sprintf("om: backend write error: %v", e.Cause)
}

func (e *BackendWriteError) Unwrap() error { return e.Cause }

// NotImplementedError is returned by optional Backend capabilities, and by
// recognized-but-undecodable features (legacy header layouts, string_array
// decode).
type NotImplementedError struct {
	Feature string
}

func (e *NotImplementedError) Error() string { return "om: not implemented: " + e.Feature }
