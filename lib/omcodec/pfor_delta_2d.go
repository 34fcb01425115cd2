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

package omcodec

import "math"

func init() { register(pforDelta2D{}) }

// pforDelta2D is the no-prequantization sibling of pforDelta2DInt16:
// instead of quantizing, it reinterprets each float64's IEEE-754 bits as an
// unsigned integer, 2D-delta-predicts those bit patterns, and bit-packs the
// residuals. Operating on float64 bits throughout keeps float32 arrays
// exact too, since every float32 value round-trips through float64.
type pforDelta2D struct{}

func (pforDelta2D) Tag() Tag { return TagPForDelta2D }

func (pforDelta2D) ChunkBufferSize(chunkDims []uint64) int {
	return chunkElementCount(chunkDims)
}

func (pforDelta2D) MaxCompressedChunkSize(chunkDims []uint64) int {
	return packedResidualBound(chunkElementCount(chunkDims))
}

func (pforDelta2D) Encode(values []float64, chunkDims []uint64, scaleFactor, addOffset float32) ([]byte, error) {
	n := chunkElementCount(chunkDims)
	if len(values) != n {
		return nil, ErrWrongElementCount
	}
	bitsAsInt := make([]int64, n)
	for i, v := range values {
		bitsAsInt[i] = int64(math.Float64bits(v))
	}
	rows, cols := rowsCols(chunkDims)
	residuals := delta2DForward(bitsAsInt, rows, cols)
	return packResiduals(residuals), nil
}

func (pforDelta2D) Decode(src []byte, chunkDims []uint64, scaleFactor, addOffset float32, dst []float64) error {
	n := chunkElementCount(chunkDims)
	if len(dst) != n {
		return ErrWrongElementCount
	}
	residuals, _, err := unpackResiduals(src)
	if err != nil {
		return err
	}
	if len(residuals) != n {
		return ErrWrongElementCount
	}
	rows, cols := rowsCols(chunkDims)
	bitsAsInt := delta2DInverse(residuals, rows, cols)
	for i, b := range bitsAsInt {
		dst[i] = math.Float64frombits(uint64(b))
	}
	return nil
}
