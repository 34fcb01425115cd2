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
	"sort"

	"github.com/weathergo/omfile/lib/omcodec"
)

// Default I/O coalescing knobs: two backend reads whose byte gap is at most
// IOSizeMerge get combined into a single request; any combined request
// larger than IOSizeMax gets split back up.
const (
	DefaultIOSizeMerge = 512
	DefaultIOSizeMax   = 65536
)

// ArrayDecoder reads hyper-rectangular sub-regions out of one array
// variable. A read proceeds in three steps: index reads fetch the
// lookup-table chunks covering the touched chunk-index range, data reads
// fetch coalesced runs of compressed chunks, and each chunk is then
// decompressed into a scratch buffer and scattered into the destination.
type ArrayDecoder[T Numeric] struct {
	backend ReadBackend
	payload ArrayPayload
	codec   omcodec.Codec

	ioSizeMerge uint64
	ioSizeMax   uint64

	nChunksPerAxis []uint64
	totalChunks    uint64
}

// NewArrayDecoder constructs a decoder for the given array payload, using
// the package defaults for the I/O coalescing knobs.
func NewArrayDecoder[T Numeric](backend ReadBackend, payload ArrayPayload) (*ArrayDecoder[T], error) {
	return NewArrayDecoderWithIOSizes[T](backend, payload, DefaultIOSizeMerge, DefaultIOSizeMax)
}

// NewArrayDecoderWithIOSizes is NewArrayDecoder with explicit merge/split
// knobs.
func NewArrayDecoderWithIOSizes[T Numeric](backend ReadBackend, payload ArrayPayload, ioSizeMerge, ioSizeMax uint64) (*ArrayDecoder[T], error) {
	if len(payload.Dimensions) != len(payload.Chunks) {
		return nil, ErrMismatchingCubeDimensionLength
	}
	if !payload.Compression.Valid() {
		return nil, ErrInvalidCompressionType
	}
	for i, c := range payload.Chunks {
		if c == 0 || payload.Dimensions[i] == 0 {
			return nil, ErrDimensionMustBeLargerThan0
		}
	}
	codec, err := omcodec.ByTag(omcodec.Tag(payload.Compression))
	if err != nil {
		return nil, err
	}
	if ioSizeMerge == 0 {
		ioSizeMerge = DefaultIOSizeMerge
	}
	if ioSizeMax == 0 {
		ioSizeMax = DefaultIOSizeMax
	}
	nChunksPerAxis := make([]uint64, len(payload.Dimensions))
	for i, d := range payload.Dimensions {
		n := d / payload.Chunks[i]
		if d%payload.Chunks[i] != 0 {
			n++
		}
		nChunksPerAxis[i] = n
	}
	return &ArrayDecoder[T]{
		backend:        backend,
		payload:        payload,
		codec:          codec,
		ioSizeMerge:    ioSizeMerge,
		ioSizeMax:      ioSizeMax,
		nChunksPerAxis: nChunksPerAxis,
		totalChunks:    totalChunkCount(payload.Dimensions, payload.Chunks),
	}, nil
}

// ReadInto fills dst (row-major over count's shape) with the
// hyper-rectangle [start, start+count) of the array.
func (d *ArrayDecoder[T]) ReadInto(dst []T, start, count []uint64) error {
	intoOffset := make([]uint64, len(count))
	return d.ReadIntoSub(dst, start, count, intoOffset, count)
}

// ReadIntoSub fills the sub-box [intoOffset, intoOffset+count) of dst
// (row-major over intoDims) with the hyper-rectangle [start, start+count)
// of the array. Elements of dst outside that sub-box are left untouched.
func (d *ArrayDecoder[T]) ReadIntoSub(dst []T, start, count, intoOffset, intoDims []uint64) error {
	rank := len(d.payload.Dimensions)
	if len(start) != rank || len(count) != rank || len(intoOffset) != rank || len(intoDims) != rank {
		return ErrMismatchingCubeDimensionLength
	}
	dstLen := uint64(1)
	sliceLen := uint64(1)
	for i, c := range count {
		if start[i]+c > d.payload.Dimensions[i] {
			return &OffsetAndCountExceedDimension{Offset: start[i], Count: c, Dimension: d.payload.Dimensions[i], Axis: i}
		}
		if intoOffset[i]+c > intoDims[i] {
			return &OffsetAndCountExceedDimension{Offset: intoOffset[i], Count: c, Dimension: intoDims[i], Axis: i}
		}
		sliceLen *= c
		dstLen *= intoDims[i]
	}
	if uint64(len(dst)) != dstLen {
		return ErrChunkHasWrongNumberOfElements
	}
	if sliceLen == 0 {
		return nil
	}

	chunkCoords := d.enumerateNeededChunks(start, count)
	chunkIndices := make([]uint64, len(chunkCoords))
	for i, coord := range chunkCoords {
		chunkIndices[i] = flattenIndex(coord, d.nChunksPerAxis)
	}

	offsets, err := d.readLUTEntries(chunkIndices)
	if err != nil {
		return err
	}

	dataRanges := make([]Range, len(chunkIndices))
	for i, flat := range chunkIndices {
		lo, hi := offsets[flat], offsets[flat+1]
		if hi < lo {
			return &DecoderError{Message: "lookup table offsets are not monotonic"}
		}
		dataRanges[i] = Range{Low: lo, High: hi}
	}

	coalesced := coalesceRanges(dataRanges, d.ioSizeMerge, d.ioSizeMax)
	for _, r := range coalesced {
		d.backend.Prefetch(r.Low, r.Size())
	}
	buffers := make([][]byte, len(coalesced))
	for i, r := range coalesced {
		buf, err := Read(d.backend, r.Low, r.Size())
		if err != nil {
			return err
		}
		buffers[i] = buf
	}

	var scratch []float64
	for i, coord := range chunkCoords {
		flat := chunkIndices[i]
		chunkBytes := sliceFromCoalesced(buffers, coalesced, dataRanges[i])
		if chunkBytes == nil {
			return errInternalInconsistentState
		}

		shape := currentChunkShape(d.payload.Dimensions, d.payload.Chunks, flat)
		chunkLen := 1
		for _, s := range shape {
			chunkLen *= int(s)
		}
		if need := d.codec.ChunkBufferSize(shape); cap(scratch) < need || cap(scratch) < chunkLen {
			if need < chunkLen {
				need = chunkLen
			}
			scratch = make([]float64, need)
		}
		scratch = scratch[:chunkLen]
		if err := d.codec.Decode(chunkBytes, shape, d.payload.ScaleFactor, d.payload.AddOffset, scratch); err != nil {
			return err
		}

		origin := make([]uint64, rank)
		for a := range origin {
			origin[a] = coord[a] * d.payload.Chunks[a]
		}
		scatterChunk(dst, scratch, shape, origin, start, count, intoOffset, intoDims)
	}
	return nil
}

// readLUTEntries resolves the lookup-table entries needed to locate the
// given chunk indices (each chunk i needs entries i and i+1). Only the
// LUT-chunks covering those entries are fetched, grouped into index reads
// under the same merge/split rules as the data reads.
func (d *ArrayDecoder[T]) readLUTEntries(chunkIndices []uint64) (map[uint64]uint64, error) {
	totalEntries := d.totalChunks + 1
	numSub := (totalEntries + omcodec.DefaultLUTChunkLength - 1) / omcodec.DefaultLUTChunkLength

	neededSub := map[uint64]bool{}
	for _, ci := range chunkIndices {
		neededSub[ci/omcodec.DefaultLUTChunkLength] = true
		neededSub[(ci+1)/omcodec.DefaultLUTChunkLength] = true
	}
	subIndices := make([]uint64, 0, len(neededSub))
	for k := range neededSub {
		subIndices = append(subIndices, k)
	}
	sort.Slice(subIndices, func(i, j int) bool { return subIndices[i] < subIndices[j] })

	dir, err := d.readLUTDirectory(numSub)
	if err != nil {
		return nil, err
	}
	if uint64(len(dir.subchunkLengths)) != numSub {
		return nil, &DecoderError{Message: "lookup table directory count mismatch"}
	}

	subRanges := make([]Range, len(subIndices))
	for i, k := range subIndices {
		low := d.payload.LutOffset + dir.subchunkStarts[k]
		subRanges[i] = Range{Low: low, High: low + dir.subchunkLengths[k]}
	}
	indexReads := coalesceRanges(subRanges, d.ioSizeMerge, d.ioSizeMax)
	for _, r := range indexReads {
		d.backend.Prefetch(r.Low, r.Size())
	}
	buffers := make([][]byte, len(indexReads))
	for i, r := range indexReads {
		buf, err := Read(d.backend, r.Low, r.Size())
		if err != nil {
			return nil, err
		}
		buffers[i] = buf
	}

	entries := make(map[uint64]uint64, 2*len(chunkIndices))
	for i, k := range subIndices {
		sub := sliceFromCoalesced(buffers, indexReads, subRanges[i])
		if sub == nil {
			return nil, errInternalInconsistentState
		}
		count := omcodec.DefaultLUTChunkLength
		if remaining := totalEntries - k*omcodec.DefaultLUTChunkLength; remaining < uint64(count) {
			count = int(remaining)
		}
		decoded, err := omcodec.DecodeLUTChunk(sub, count)
		if err != nil {
			return nil, err
		}
		base := k * omcodec.DefaultLUTChunkLength
		for j, v := range decoded {
			entries[base+uint64(j)] = v
		}
	}
	return entries, nil
}

// readLUTDirectory fetches and parses the directory at the head of the
// compressed LUT region. Its exact length is not knowable up front, but a
// varint-based bound from the known LUT-chunk count is.
func (d *ArrayDecoder[T]) readLUTDirectory(numSub uint64) (lutDirectory, error) {
	bound := uint64(10 * (1 + numSub))
	if bound > d.payload.LutSize {
		bound = d.payload.LutSize
	}
	head, err := Read(d.backend, d.payload.LutOffset, bound)
	if err != nil {
		return lutDirectory{}, err
	}
	return decodeLUTDirectory(head)
}

// enumerateNeededChunks lists, in row-major order, every chunk-grid
// coordinate that intersects [start, start+count).
func (d *ArrayDecoder[T]) enumerateNeededChunks(start, count []uint64) [][]uint64 {
	rank := len(start)
	lo := make([]uint64, rank)
	hi := make([]uint64, rank) // inclusive
	for i := range start {
		lo[i] = start[i] / d.payload.Chunks[i]
		hi[i] = (start[i] + count[i] - 1) / d.payload.Chunks[i]
	}
	var out [][]uint64
	coord := make([]uint64, rank)
	copy(coord, lo)
	for {
		next := make([]uint64, rank)
		copy(next, coord)
		out = append(out, next)

		axis := rank - 1
		for axis >= 0 {
			coord[axis]++
			if coord[axis] <= hi[axis] {
				break
			}
			coord[axis] = lo[axis]
			axis--
		}
		if axis < 0 {
			break
		}
	}
	return out
}

// scatterChunk copies the elements of a decoded chunk (shape, origin in
// global coordinates) that fall inside [start, start+count) into the
// sub-box of dst at intoOffset (dst row-major over intoDims). Each element
// lands at exact per-element coordinates, so scattering the same chunk
// twice is a no-op on the result.
func scatterChunk[T Numeric](dst []T, chunk []float64, shape, origin, start, count, intoOffset, intoDims []uint64) {
	rank := len(shape)

	// Intersection of the chunk with the requested slice, in chunk-local
	// coordinates.
	localLo := make([]uint64, rank)
	localHi := make([]uint64, rank) // exclusive
	for a := 0; a < rank; a++ {
		lo, hi := origin[a], origin[a]+shape[a]
		if start[a] > lo {
			lo = start[a]
		}
		if end := start[a] + count[a]; end < hi {
			hi = end
		}
		if hi <= lo {
			return
		}
		localLo[a] = lo - origin[a]
		localHi[a] = hi - origin[a]
	}

	coord := make([]uint64, rank)
	copy(coord, localLo)
	for {
		srcFlat := uint64(0)
		dstFlat := uint64(0)
		for a := 0; a < rank; a++ {
			srcFlat = srcFlat*shape[a] + coord[a]
			global := origin[a] + coord[a]
			dstFlat = dstFlat*intoDims[a] + (intoOffset[a] + global - start[a])
		}
		dst[dstFlat] = T(chunk[srcFlat])

		axis := rank - 1
		for axis >= 0 {
			coord[axis]++
			if coord[axis] < localHi[axis] {
				break
			}
			coord[axis] = localLo[axis]
			axis--
		}
		if axis < 0 {
			break
		}
	}
}

func flattenIndex(coord, shape []uint64) uint64 {
	var flat uint64
	for i := range shape {
		flat = flat*shape[i] + coord[i]
	}
	return flat
}

// coalesceRanges merges ranges (not necessarily sorted) whose gap is at
// most ioSizeMerge, then splits any merged range longer than ioSizeMax.
func coalesceRanges(ranges []Range, ioSizeMerge, ioSizeMax uint64) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Low <= last.High || gap(*last, r) <= ioSizeMerge {
			if r.High > last.High {
				last.High = r.High
			}
			continue
		}
		merged = append(merged, r)
	}

	var out []Range
	for _, r := range merged {
		out = append(out, splitRange(r, ioSizeMax)...)
	}
	return out
}

// splitRange breaks r into consecutive pieces no larger than maxSize.
func splitRange(r Range, maxSize uint64) []Range {
	if maxSize == 0 || r.Size() <= maxSize {
		return []Range{r}
	}
	var out []Range
	for low := r.Low; low < r.High; low += maxSize {
		high := low + maxSize
		if high > r.High {
			high = r.High
		}
		out = append(out, Range{Low: low, High: high})
	}
	return out
}

// sliceFromCoalesced finds which coalesced buffer contains want and returns
// the corresponding sub-slice. A chunk larger than ioSizeMax spans several
// split buffers; stitch them back together in that case.
func sliceFromCoalesced(buffers [][]byte, ranges []Range, want Range) []byte {
	for i, r := range ranges {
		if want.Low >= r.Low && want.High <= r.High {
			return buffers[i][want.Low-r.Low : want.High-r.Low]
		}
	}
	// No single buffer holds it: gather the pieces.
	var out []byte
	covered := want.Low
	for i, r := range ranges {
		if r.High <= covered || r.Low > covered {
			continue
		}
		high := r.High
		if high > want.High {
			high = want.High
		}
		out = append(out, buffers[i][covered-r.Low:high-r.Low]...)
		covered = high
		if covered == want.High {
			return out
		}
	}
	return nil
}
