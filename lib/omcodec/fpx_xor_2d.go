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

import (
	"math"
	"math/bits"
)

func init() { register(fpxXor2D{}) }

// fpxXor2D is the lossless float codec: decoding yields the exact original
// bits, including NaN and signed zero. Each element is XORed against the
// same left-then-above 2D predictor as pforDelta2D, then the XOR residual
// is stored as a (leading-zero-count, significant-bit-count) pair plus the
// significant bits themselves, in the manner of Gorilla-style float
// compressors.
type fpxXor2D struct{}

func (fpxXor2D) Tag() Tag { return TagFpxXor2D }

func (fpxXor2D) ChunkBufferSize(chunkDims []uint64) int {
	return chunkElementCount(chunkDims)
}

func (fpxXor2D) MaxCompressedChunkSize(chunkDims []uint64) int {
	// varint count + 2 bytes of (lz, sig) per element + up to 8 bytes of
	// significant bits per element + flush slack.
	n := chunkElementCount(chunkDims)
	return binaryMaxVarintLen64 + 2*n + 8*n + 8
}

func (fpxXor2D) Encode(values []float64, chunkDims []uint64, scaleFactor, addOffset float32) ([]byte, error) {
	n := chunkElementCount(chunkDims)
	if len(values) != n {
		return nil, ErrWrongElementCount
	}
	rows, cols := rowsCols(chunkDims)
	valueBits := make([]uint64, n)
	for i, v := range values {
		valueBits[i] = math.Float64bits(v)
	}

	header := appendUvarint(nil, uint64(n))
	lzsig := make([]byte, 0, 2*n)
	bw := &bitWriter{}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			pred := xorPredictor(valueBits, idx, r, c, cols)
			residual := valueBits[idx] ^ pred

			var lz, sig int
			if residual == 0 {
				lz, sig = 64, 0
			} else {
				lz = bits.LeadingZeros64(residual)
				tz := bits.TrailingZeros64(residual)
				sig = 64 - lz - tz
			}
			lzsig = append(lzsig, byte(lz), byte(sig))
			if sig > 0 {
				tz := 64 - lz - sig
				bw.writeBits(residual>>uint(tz), sig)
			}
		}
	}

	out := append(header, lzsig...)
	return append(out, bw.flush()...), nil
}

func (fpxXor2D) Decode(src []byte, chunkDims []uint64, scaleFactor, addOffset float32, dst []float64) error {
	n := chunkElementCount(chunkDims)
	if len(dst) != n {
		return ErrWrongElementCount
	}
	count, hn, err := readUvarint(src)
	if err != nil {
		return err
	}
	if int(count) != n {
		return ErrWrongElementCount
	}
	off := hn
	if len(src)-off < 2*n {
		return errTruncated
	}
	lzsig := src[off : off+2*n]
	off += 2 * n
	br := newBitReader(src[off:])

	rows, cols := rowsCols(chunkDims)
	valueBits := make([]uint64, n)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			lz := int(lzsig[2*idx])
			sig := int(lzsig[2*idx+1])
			var residual uint64
			if sig > 0 {
				tz := 64 - lz - sig
				residual = br.readBits(sig) << uint(tz)
			}
			pred := xorPredictor(valueBits, idx, r, c, cols)
			valueBits[idx] = pred ^ residual
		}
	}
	for i, b := range valueBits {
		dst[i] = math.Float64frombits(b)
	}
	return nil
}

// xorPredictor mirrors delta2DForward's predictor rule: left neighbor
// within the row, else the element directly above, else zero.
func xorPredictor(valueBits []uint64, idx, r, c, cols int) uint64 {
	switch {
	case c > 0:
		return valueBits[idx-1]
	case r > 0:
		return valueBits[idx-cols]
	default:
		return 0
	}
}
