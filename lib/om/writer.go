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

// Writer builds an OM file one variable at a time: scalars and groups are
// declared up front, arrays are fed chunk data through an ArrayEncoder,
// and Finalize commits the variable tree bottom-up followed by the
// trailer.
type Writer struct {
	bw   *bufferedWriter
	tree *Tree
}

// NewWriter writes the file header and returns a Writer ready to accept
// variables.
func NewWriter(backend WriteBackend) (*Writer, error) {
	return NewWriterWithCapacity(backend, DefaultInitialBufferCapacity)
}

// NewWriterWithCapacity is NewWriter with an explicit initial buffer
// capacity. The buffer grows in multiples of it when a record or chunk
// does not fit.
func NewWriterWithCapacity(backend WriteBackend, initialCapacity int) (*Writer, error) {
	bw := newBufferedWriter(backend, initialCapacity)
	header := EncodeHeader()
	if err := bw.Write(header[:]); err != nil {
		return nil, err
	}
	return &Writer{bw: bw, tree: NewTree()}, nil
}

func (w *Writer) registerRecord(name string, children []string, encode func(childRefs []ChildRef) ([]byte, error)) error {
	err := w.tree.Add(name, func(childRefs []ChildRef) (ChildRef, error) {
		// Encoding an array record finalizes its encoder, which appends
		// the compressed lookup table to the stream. The record's own
		// offset can only be taken after that, and after re-aligning
		// (chunk and LUT bytes end wherever they end).
		rec, err := encode(childRefs)
		if err != nil {
			return ChildRef{}, err
		}
		if err := w.bw.alignTo8(); err != nil {
			return ChildRef{}, err
		}
		offset := w.bw.Offset()
		if err := w.bw.Write(rec); err != nil {
			return ChildRef{}, err
		}
		return ChildRef{Offset: offset, Size: uint64(len(rec))}, nil
	})
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return w.tree.SetChildren(name, children)
	}
	return nil
}

// WriteGroup declares a group variable: a named node with no payload of its
// own, only children.
func (w *Writer) WriteGroup(name string, children []string) error {
	return w.registerRecord(name, children, func(childRefs []ChildRef) ([]byte, error) {
		return EncodeGroupRecord(name, childRefs), nil
	})
}

// WriteScalar declares a numeric scalar variable.
func WriteScalar[T Numeric](w *Writer, name string, value T, children []string) error {
	dataType, err := dataTypeOf[T]()
	if err != nil {
		return err
	}
	valueBytes := encodeScalarValue(value)
	return w.registerRecord(name, children, func(childRefs []ChildRef) ([]byte, error) {
		return EncodeScalarRecord(dataType, name, childRefs, valueBytes), nil
	})
}

// WriteStringScalar declares a string scalar variable.
func (w *Writer) WriteStringScalar(name string, value string, children []string) error {
	valueBytes := encodeStringValue(value)
	return w.registerRecord(name, children, func(childRefs []ChildRef) ([]byte, error) {
		return EncodeScalarRecord(DataTypeString, name, childRefs, valueBytes), nil
	})
}

// PrepareArray allocates a chunk encoder for a new array variable. Callers
// feed it via ArrayEncoder.WriteChunk or WriteData in row-major chunk
// order, then pass the encoder to WriteArray to commit it as a named
// variable.
func PrepareArray[T Numeric](w *Writer, dims, chunkDims []uint64, compression CompressionType, scaleFactor, addOffset float32) (*ArrayEncoder[T], error) {
	return NewArrayEncoder[T](w.bw, dims, chunkDims, compression, scaleFactor, addOffset)
}

// WriteArray finalizes enc (every chunk must already have been written) and
// registers it as name in the variable tree.
func WriteArray[T Numeric](w *Writer, name string, enc *ArrayEncoder[T], children []string) error {
	dataType, err := dataTypeOf[T]()
	if err != nil {
		return err
	}
	arrayType := dataType.arrayOf()
	return w.registerRecord(name, children, func(childRefs []ChildRef) ([]byte, error) {
		payload, err := enc.Finalize()
		if err != nil {
			return nil, err
		}
		return EncodeArrayRecordTyped(arrayType, name, childRefs, payload)
	})
}

// Finalize writes every declared variable (post-order), then the trailer
// pointing at the root, and flushes and syncs the backend.
func (w *Writer) Finalize() error {
	root, err := w.tree.Write()
	if err != nil {
		return err
	}
	if err := w.bw.alignTo8(); err != nil {
		return err
	}
	trailer := Trailer{RootOffset: root.Offset, RootSize: root.Size}
	enc := trailer.Encode()
	if err := w.bw.Write(enc[:]); err != nil {
		return err
	}
	if err := w.bw.flush(); err != nil {
		return err
	}
	return w.bw.backend.Sync()
}
