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
	"io"
	"sync"
)

// Reader is the read side of an OM file: it locates the root variable via
// the trailer and hands out VariableHandles for traversing the variable
// tree. A Reader is safe for concurrent use; reads are pure over the
// backend's immutable bytes.
type Reader struct {
	mu      sync.RWMutex
	closed  bool
	backend ReadBackend
	root    ChildRef
}

// OpenReader reads the header and trailer and returns a Reader positioned
// at the file's root variable.
func OpenReader(backend ReadBackend) (*Reader, error) {
	length, err := backend.Len()
	if err != nil {
		return nil, err
	}
	if length < uint64(HeaderSize+TrailerSize) {
		return nil, ErrNotAnOmFile
	}
	headerBytes, err := Read(backend, 0, HeaderSize)
	if err != nil {
		return nil, err
	}
	version, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	if version != VersionTrailer {
		return nil, &NotImplementedError{Feature: "legacy header (version 1/2)"}
	}
	trailerBytes, err := Read(backend, length-TrailerSize, TrailerSize)
	if err != nil {
		return nil, err
	}
	trailer, err := DecodeTrailer(trailerBytes)
	if err != nil {
		return nil, err
	}
	return &Reader{
		backend: backend,
		root:    ChildRef{Offset: trailer.RootOffset, Size: trailer.RootSize},
	}, nil
}

// Close releases the Reader. If the backend itself is closeable (a memory
// map, a remote handle), it is closed too. Reads issued after Close fail
// with ErrClosedFile; reads already holding the lock complete first.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if c, ok := r.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// acquire takes the read lock, failing if the Reader has been closed. The
// caller must release() when its backend accesses are done.
func (r *Reader) acquire() error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosedFile
	}
	return nil
}

func (r *Reader) release() { r.mu.RUnlock() }

// Root opens and returns the file's root variable.
func (r *Reader) Root() (*VariableHandle, error) {
	return r.OpenVariable(r.root)
}

// OpenVariable materializes the variable record a ChildRef points at. The
// ref must come from this file (the trailer's root, a children table, or
// FlatVariableMetadata).
func (r *Reader) OpenVariable(ref ChildRef) (*VariableHandle, error) {
	if err := r.acquire(); err != nil {
		return nil, err
	}
	defer r.release()
	b, err := Read(r.backend, ref.Offset, ref.Size)
	if err != nil {
		return nil, err
	}
	header, err := decodeRecordPrefix(b)
	if err != nil {
		return nil, err
	}
	return &VariableHandle{r: r, ref: ref, header: header}, nil
}

// VariableHandle is a decoded variable record: its name, data type, and
// either scalar value bytes, an array payload, or group children.
type VariableHandle struct {
	r      *Reader
	ref    ChildRef
	header decodedRecordHeader
}

func (v *VariableHandle) Name() string       { return v.header.Name }
func (v *VariableHandle) DataType() DataType { return v.header.DataType }
func (v *VariableHandle) NumChildren() int   { return len(v.header.Children) }
func (v *VariableHandle) ChildRef() ChildRef { return v.ref }

// Child opens the i-th child variable.
func (v *VariableHandle) Child(i int) (*VariableHandle, error) {
	return v.r.OpenVariable(v.header.Children[i])
}

// ChildByName opens the first child whose name matches. Returns
// (nil, nil) if no such child exists.
func (v *VariableHandle) ChildByName(name string) (*VariableHandle, error) {
	for i := range v.header.Children {
		child, err := v.Child(i)
		if err != nil {
			return nil, err
		}
		if child.Name() == name {
			return child, nil
		}
	}
	return nil, nil
}

// ArrayPayload decodes this variable's array payload. v.DataType() must be
// an array type.
func (v *VariableHandle) ArrayPayload() (ArrayPayload, error) {
	if !v.header.DataType.IsArray() {
		return ArrayPayload{}, ErrInvalidDataType
	}
	return DecodeArrayPayload(v.header.Rest)
}

// Dimensions returns an array variable's dimensions, or nil for scalars
// and groups.
func (v *VariableHandle) Dimensions() []uint64 {
	if payload, err := v.ArrayPayload(); err == nil {
		return payload.Dimensions
	}
	return nil
}

// ChunkDimensions returns an array variable's chunk shape, or nil.
func (v *VariableHandle) ChunkDimensions() []uint64 {
	if payload, err := v.ArrayPayload(); err == nil {
		return payload.Chunks
	}
	return nil
}

// Compression returns an array variable's codec tag. Non-array variables
// report CompressionNone.
func (v *VariableHandle) Compression() CompressionType {
	if payload, err := v.ArrayPayload(); err == nil {
		return payload.Compression
	}
	return CompressionNone
}

// ScaleFactor returns an array variable's scale factor (1 for non-arrays).
func (v *VariableHandle) ScaleFactor() float32 {
	if payload, err := v.ArrayPayload(); err == nil {
		return payload.ScaleFactor
	}
	return 1
}

// AddOffset returns an array variable's add offset (0 for non-arrays).
func (v *VariableHandle) AddOffset() float32 {
	if payload, err := v.ArrayPayload(); err == nil {
		return payload.AddOffset
	}
	return 0
}

// ReadScalar decodes this variable as a numeric scalar of type T. ok is
// false if v is not a scalar of that exact type.
func ReadScalar[T Numeric](v *VariableHandle) (value T, ok bool) {
	if !v.header.DataType.IsScalar() {
		return value, false
	}
	return decodeScalarValue[T](v.header.DataType, v.header.Rest)
}

// ReadStringScalar decodes this variable as a string scalar.
func (v *VariableHandle) ReadStringScalar() (string, bool) {
	if v.header.DataType != DataTypeString {
		return "", false
	}
	return decodeStringValue(v.header.Rest)
}

// ReadOptions tunes a slice read. The zero value reads into a destination
// shaped exactly like the requested slice, with the default I/O coalescing
// knobs.
type ReadOptions struct {
	// IntoOffset and IntoDimensions place the decoded slice inside a
	// larger destination buffer: dst is row-major over IntoDimensions and
	// the slice lands at IntoOffset. Leave both nil to fill dst exactly.
	IntoOffset     []uint64
	IntoDimensions []uint64

	// IOSizeMerge and IOSizeMax override the coalescing knobs; zero means
	// the package default.
	IOSizeMerge uint64
	IOSizeMax   uint64
}

// ReadArrayInto fills dst with the hyper-rectangle [start, start+count) of
// this array variable.
func ReadArrayInto[T Numeric](v *VariableHandle, start, count []uint64, dst []T) error {
	return ReadArrayIntoOpts(v, start, count, dst, ReadOptions{})
}

// ReadArrayIntoOpts is ReadArrayInto with explicit destination placement
// and I/O coalescing knobs.
func ReadArrayIntoOpts[T Numeric](v *VariableHandle, start, count []uint64, dst []T, opts ReadOptions) error {
	if v.header.DataType == DataTypeStringArray {
		return &NotImplementedError{Feature: "string_array decode"}
	}
	payload, err := v.ArrayPayload()
	if err != nil {
		return err
	}
	if err := v.r.acquire(); err != nil {
		return err
	}
	defer v.r.release()
	dec, err := NewArrayDecoderWithIOSizes[T](v.r.backend, payload, opts.IOSizeMerge, opts.IOSizeMax)
	if err != nil {
		return err
	}
	intoOffset := opts.IntoOffset
	if intoOffset == nil {
		intoOffset = make([]uint64, len(count))
	}
	intoDims := opts.IntoDimensions
	if intoDims == nil {
		intoDims = count
	}
	return dec.ReadIntoSub(dst, start, count, intoOffset, intoDims)
}

// ReadArray reads this array variable in full into a freshly allocated
// slice.
func ReadArray[T Numeric](v *VariableHandle) ([]T, error) {
	payload, err := v.ArrayPayload()
	if err != nil {
		return nil, err
	}
	n := uint64(1)
	for _, d := range payload.Dimensions {
		n *= d
	}
	dst := make([]T, n)
	start := make([]uint64, len(payload.Dimensions))
	if err := ReadArrayInto(v, start, payload.Dimensions, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// VariableMetadata is one entry of a flattened variable tree listing.
type VariableMetadata struct {
	Path     string
	Offset   uint64
	Size     uint64
	DataType DataType
	IsScalar bool

	// Dimensions is non-nil only for array variables.
	Dimensions []uint64
}

// FlatVariableMetadata walks the whole variable tree depth-first from the
// root and returns every variable's slash-joined path, record location,
// and kind.
func (r *Reader) FlatVariableMetadata() ([]VariableMetadata, error) {
	root, err := r.Root()
	if err != nil {
		return nil, err
	}
	var out []VariableMetadata
	var walk func(v *VariableHandle, path string) error
	walk = func(v *VariableHandle, path string) error {
		full := v.Name()
		if path != "" {
			full = path + "/" + v.Name()
		}
		meta := VariableMetadata{
			Path:     full,
			Offset:   v.ref.Offset,
			Size:     v.ref.Size,
			DataType: v.header.DataType,
			IsScalar: v.header.DataType.IsScalar(),
		}
		if v.header.DataType.IsArray() {
			if payload, err := v.ArrayPayload(); err == nil {
				meta.Dimensions = payload.Dimensions
			}
		}
		out = append(out, meta)
		for i := range v.header.Children {
			child, err := v.Child(i)
			if err != nil {
				return err
			}
			if err := walk(child, full); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return out, nil
}
