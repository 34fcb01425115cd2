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

func init() { register(pforDelta2DInt16{}) }

// pforDelta2DInt16 quantizes each value to an int16 via scaleFactor/addOffset,
// applies the 2D delta predictor, then bit-packs the residuals. Lossy:
// round-trips within 0.5*scaleFactor of the original.
type pforDelta2DInt16 struct{}

func (pforDelta2DInt16) Tag() Tag { return TagPForDelta2DInt16 }

func (pforDelta2DInt16) ChunkBufferSize(chunkDims []uint64) int {
	return chunkElementCount(chunkDims)
}

func (pforDelta2DInt16) MaxCompressedChunkSize(chunkDims []uint64) int {
	return packedResidualBound(chunkElementCount(chunkDims))
}

func quantizeInt16(v float64, scaleFactor, addOffset float32) int64 {
	q := math.Round((v - float64(addOffset)) / float64(scaleFactor))
	return clampInt16(q)
}

func clampInt16(q float64) int64 {
	const lo, hi = math.MinInt16, math.MaxInt16
	if q < lo {
		return lo
	}
	if q > hi {
		return hi
	}
	return int64(q)
}

func dequantizeInt16(q int64, scaleFactor, addOffset float32) float64 {
	return float64(q)*float64(scaleFactor) + float64(addOffset)
}

func (pforDelta2DInt16) Encode(values []float64, chunkDims []uint64, scaleFactor, addOffset float32) ([]byte, error) {
	n := chunkElementCount(chunkDims)
	if len(values) != n {
		return nil, ErrWrongElementCount
	}
	quantized := make([]int64, n)
	for i, v := range values {
		quantized[i] = quantizeInt16(v, scaleFactor, addOffset)
	}
	rows, cols := rowsCols(chunkDims)
	residuals := delta2DForward(quantized, rows, cols)
	return packResiduals(residuals), nil
}

func (pforDelta2DInt16) Decode(src []byte, chunkDims []uint64, scaleFactor, addOffset float32, dst []float64) error {
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
	quantized := delta2DInverse(residuals, rows, cols)
	for i, q := range quantized {
		dst[i] = dequantizeInt16(q, scaleFactor, addOffset)
	}
	return nil
}
