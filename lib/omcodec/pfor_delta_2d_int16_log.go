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

func init() { register(pforDelta2DInt16Log{}) }

// pforDelta2DInt16Log is pforDelta2DInt16 with a log10(1+x) companding step
// applied before quantization, for heavy-tailed non-negative quantities such
// as precipitation.
type pforDelta2DInt16Log struct{}

func (pforDelta2DInt16Log) Tag() Tag { return TagPForDelta2DInt16Log }

func (pforDelta2DInt16Log) ChunkBufferSize(chunkDims []uint64) int {
	return chunkElementCount(chunkDims)
}

func (pforDelta2DInt16Log) MaxCompressedChunkSize(chunkDims []uint64) int {
	return packedResidualBound(chunkElementCount(chunkDims))
}

func (pforDelta2DInt16Log) Encode(values []float64, chunkDims []uint64, scaleFactor, addOffset float32) ([]byte, error) {
	n := chunkElementCount(chunkDims)
	if len(values) != n {
		return nil, ErrWrongElementCount
	}
	quantized := make([]int64, n)
	for i, v := range values {
		logv := math.Log10(1 + v)
		quantized[i] = quantizeInt16(logv, scaleFactor, addOffset)
	}
	rows, cols := rowsCols(chunkDims)
	residuals := delta2DForward(quantized, rows, cols)
	return packResiduals(residuals), nil
}

func (pforDelta2DInt16Log) Decode(src []byte, chunkDims []uint64, scaleFactor, addOffset float32, dst []float64) error {
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
		logv := dequantizeInt16(q, scaleFactor, addOffset)
		dst[i] = math.Pow(10, logv) - 1
	}
	return nil
}
