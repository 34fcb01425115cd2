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
	"fmt"

	"github.com/weathergo/omfile/lib/omcodec"
)

// ArrayEncoder accumulates one array variable's compressed chunks,
// appending each to the shared file stream as it arrives, then produces
// the compressed lookup table and ArrayPayload fields once every chunk has
// been written. Chunks must arrive in row-major chunk order.
type ArrayEncoder[T Numeric] struct {
	w *bufferedWriter

	dims      []uint64
	chunkDims []uint64
	codec     omcodec.Codec

	compression CompressionType
	scaleFactor float32
	addOffset   float32

	totalChunks  uint64
	nextChunk    uint64
	chunkOffsets []uint64 // len == totalChunks+1 once Finalize is called
	scratch      []float64
}

// NewArrayEncoder validates dims/chunkDims and looks up the requested
// codec.
func NewArrayEncoder[T Numeric](w *bufferedWriter, dims, chunkDims []uint64, compression CompressionType, scaleFactor, addOffset float32) (*ArrayEncoder[T], error) {
	if len(dims) != len(chunkDims) {
		return nil, ErrMismatchingCubeDimensionLength
	}
	for _, d := range dims {
		if d == 0 {
			return nil, ErrDimensionMustBeLargerThan0
		}
	}
	for _, c := range chunkDims {
		if c == 0 {
			return nil, ErrDimensionMustBeLargerThan0
		}
	}
	if !compression.Valid() {
		return nil, ErrInvalidCompressionType
	}
	codec, err := omcodec.ByTag(omcodec.Tag(compression))
	if err != nil {
		return nil, err
	}
	return &ArrayEncoder[T]{
		w:           w,
		dims:        dims,
		chunkDims:   chunkDims,
		codec:       codec,
		compression: compression,
		scaleFactor: scaleFactor,
		addOffset:   addOffset,
		totalChunks: totalChunkCount(dims, chunkDims),
	}, nil
}

// totalChunkCount is prod(ceil(dims[i]/chunkDims[i])).
func totalChunkCount(dims, chunkDims []uint64) uint64 {
	total := uint64(1)
	for i, d := range dims {
		n := d / chunkDims[i]
		if d%chunkDims[i] != 0 {
			n++
		}
		total *= n
	}
	return total
}

// currentChunkShape returns the actual (possibly truncated at the array's
// edge) shape of the chunk at chunkIndex, in row-major chunk order.
func currentChunkShape(dims, chunkDims []uint64, chunkIndex uint64) []uint64 {
	nChunksPerAxis := make([]uint64, len(dims))
	for i, d := range dims {
		n := d / chunkDims[i]
		if d%chunkDims[i] != 0 {
			n++
		}
		nChunksPerAxis[i] = n
	}
	coord := make([]uint64, len(dims))
	rem := chunkIndex
	for i := len(dims) - 1; i >= 0; i-- {
		coord[i] = rem % nChunksPerAxis[i]
		rem /= nChunksPerAxis[i]
	}
	shape := make([]uint64, len(dims))
	for i, d := range dims {
		start := coord[i] * chunkDims[i]
		size := chunkDims[i]
		if start+size > d {
			size = d - start
		}
		shape[i] = size
	}
	return shape
}

// WriteChunk compresses and appends the next chunk in row-major chunk
// order. len(values) must equal the element count of that chunk's (possibly
// edge-truncated) shape.
func (e *ArrayEncoder[T]) WriteChunk(values []T) error {
	if e.nextChunk >= e.totalChunks {
		return fmt.Errorf("om: all %d chunks already written", e.totalChunks)
	}
	shape := currentChunkShape(e.dims, e.chunkDims, e.nextChunk)
	want := uint64(1)
	for _, s := range shape {
		want *= s
	}
	if uint64(len(values)) != want {
		return ErrChunkHasWrongNumberOfElements
	}

	if cap(e.scratch) < len(values) {
		e.scratch = make([]float64, e.codec.ChunkBufferSize(e.chunkDims))
	}
	asFloat64 := e.scratch[:len(values)]
	for i, v := range values {
		asFloat64[i] = float64(v)
	}
	if err := e.w.reallocate(e.codec.MaxCompressedChunkSize(shape)); err != nil {
		return err
	}
	compressed, err := e.codec.Encode(asFloat64, shape, e.scaleFactor, e.addOffset)
	if err != nil {
		return err
	}

	if len(e.chunkOffsets) == 0 {
		e.chunkOffsets = append(e.chunkOffsets, e.w.Offset())
	}
	if err := e.w.Write(compressed); err != nil {
		return err
	}
	e.chunkOffsets = append(e.chunkOffsets, e.w.Offset())
	e.nextChunk++
	return nil
}

// WriteData compresses the chunks covered by the source hyper-rectangle
// [srcOffset, srcOffset+srcCount) of values, which is laid out row-major
// over srcDims. The covered region must continue exactly where the
// previous WriteData/WriteChunk call left off, span the array's full
// extent on every axis but the first, and cover whole chunk rows along the
// first axis (or finish the array).
func (e *ArrayEncoder[T]) WriteData(values []T, srcDims, srcOffset, srcCount []uint64) error {
	rank := len(e.dims)
	if rank == 0 || len(srcDims) != rank || len(srcOffset) != rank || len(srcCount) != rank {
		return ErrMismatchingCubeDimensionLength
	}
	for i := range srcDims {
		if srcOffset[i]+srcCount[i] > srcDims[i] {
			return &OffsetAndCountExceedDimension{Offset: srcOffset[i], Count: srcCount[i], Dimension: srcDims[i], Axis: i}
		}
	}
	for i := 1; i < rank; i++ {
		if srcCount[i] != e.dims[i] {
			return ErrChunkHasWrongNumberOfElements
		}
	}

	chunksPerRow := e.totalChunks
	rowsOfChunks := (e.dims[0] + e.chunkDims[0] - 1) / e.chunkDims[0]
	if rowsOfChunks > 0 {
		chunksPerRow = e.totalChunks / rowsOfChunks
	}
	if chunksPerRow == 0 || e.nextChunk%chunksPerRow != 0 {
		return ErrChunkHasWrongNumberOfElements
	}
	writtenRows := (e.nextChunk / chunksPerRow) * e.chunkDims[0]
	if srcCount[0]%e.chunkDims[0] != 0 && writtenRows+srcCount[0] != e.dims[0] {
		return ErrChunkHasWrongNumberOfElements
	}
	if writtenRows+srcCount[0] > e.dims[0] {
		return &OffsetAndCountExceedDimension{Offset: writtenRows, Count: srcCount[0], Dimension: e.dims[0], Axis: 0}
	}

	firstChunk := e.nextChunk
	coveredChunkRows := (srcCount[0] + e.chunkDims[0] - 1) / e.chunkDims[0]
	lastChunk := firstChunk + coveredChunkRows*chunksPerRow

	chunk := make([]T, 0, chunkElementCapacity(e.chunkDims))
	for ci := firstChunk; ci < lastChunk; ci++ {
		shape := currentChunkShape(e.dims, e.chunkDims, ci)
		origin := chunkOriginOf(e.dims, e.chunkDims, ci)
		chunk = gatherChunk(chunk[:0], values, srcDims, srcOffset, shape, origin, writtenRows)
		if err := e.WriteChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func chunkElementCapacity(chunkDims []uint64) int {
	n := 1
	for _, d := range chunkDims {
		n *= int(d)
	}
	return n
}

// chunkOriginOf returns the global coordinate at which chunk chunkIndex
// begins.
func chunkOriginOf(dims, chunkDims []uint64, chunkIndex uint64) []uint64 {
	nChunksPerAxis := make([]uint64, len(dims))
	for i, d := range dims {
		n := d / chunkDims[i]
		if d%chunkDims[i] != 0 {
			n++
		}
		nChunksPerAxis[i] = n
	}
	origin := make([]uint64, len(dims))
	rem := chunkIndex
	for i := len(dims) - 1; i >= 0; i-- {
		origin[i] = (rem % nChunksPerAxis[i]) * chunkDims[i]
		rem /= nChunksPerAxis[i]
	}
	return origin
}

// gatherChunk appends the elements of one output chunk, read from the
// strided source subview. rowBase is the array row at which the current
// WriteData call began, mapping array coordinates back into the subview.
func gatherChunk[T Numeric](out []T, values []T, srcDims, srcOffset []uint64, shape, origin []uint64, rowBase uint64) []T {
	rank := len(shape)
	coord := make([]uint64, rank)
	for {
		srcFlat := uint64(0)
		for a := 0; a < rank; a++ {
			global := origin[a] + coord[a]
			if a == 0 {
				global -= rowBase
			}
			srcFlat = srcFlat*srcDims[a] + srcOffset[a] + global
		}
		out = append(out, values[srcFlat])

		axis := rank - 1
		for axis >= 0 {
			coord[axis]++
			if coord[axis] < shape[axis] {
				break
			}
			coord[axis] = 0
			axis--
		}
		if axis < 0 {
			break
		}
	}
	return out
}

// Finalize writes the compressed lookup table and returns the ArrayPayload
// fields describing this variable, once every chunk has been written.
func (e *ArrayEncoder[T]) Finalize() (ArrayPayload, error) {
	if e.nextChunk != e.totalChunks {
		return ArrayPayload{}, fmt.Errorf("om: only %d of %d chunks were written", e.nextChunk, e.totalChunks)
	}
	if len(e.chunkOffsets) == 0 {
		e.chunkOffsets = []uint64{e.w.Offset()}
	}

	if err := e.w.alignTo8(); err != nil {
		return ArrayPayload{}, err
	}
	lutOffset := e.w.Offset()
	lutBytes := encodeLUT(e.chunkOffsets)
	if err := e.w.Write(lutBytes); err != nil {
		return ArrayPayload{}, err
	}
	if err := e.w.alignTo8(); err != nil {
		return ArrayPayload{}, err
	}

	return ArrayPayload{
		Compression: e.compression,
		ScaleFactor: e.scaleFactor,
		AddOffset:   e.addOffset,
		Dimensions:  e.dims,
		Chunks:      e.chunkDims,
		LutSize:     uint64(len(lutBytes)),
		LutOffset:   lutOffset,
	}, nil
}

// encodeLUT serializes n_chunks+1 absolute offsets as a sequence of
// independently-decodable LUT-chunks of omcodec.DefaultLUTChunkLength
// entries each, preceded by a directory of each LUT-chunk's compressed
// byte length so a reader can locate any LUT-chunk without decoding the
// others.
func encodeLUT(offsets []uint64) []byte {
	var subchunks [][]byte
	for start := 0; start < len(offsets); start += omcodec.DefaultLUTChunkLength {
		end := start + omcodec.DefaultLUTChunkLength
		if end > len(offsets) {
			end = len(offsets)
		}
		subchunks = append(subchunks, omcodec.EncodeLUTChunk(offsets[start:end]))
	}

	out := appendUvarintOm(nil, uint64(len(subchunks)))
	for _, sub := range subchunks {
		out = appendUvarintOm(out, uint64(len(sub)))
	}
	for _, sub := range subchunks {
		out = append(out, sub...)
	}
	return out
}
