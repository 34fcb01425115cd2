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

// DefaultLUTChunkLength is the number of lookup-table entries per LUT-chunk.
// Keeping the LUT itself chunked lets a reader fetch only the LUT-chunks
// covering the chunk-index range a slice actually touches.
const DefaultLUTChunkLength = 256

// EncodeLUTChunk delta+varint-encodes a run of absolute chunk offsets. The
// first offset is stored in full, every later one as a delta from its
// predecessor, so each LUT-chunk decodes on its own — no other LUT-chunk
// has to be fetched first.
func EncodeLUTChunk(offsets []uint64) []byte {
	out := make([]byte, 0, len(offsets)*2)
	prev := uint64(0)
	for i, o := range offsets {
		if i == 0 {
			out = appendUvarint(out, o)
		} else {
			out = appendUvarint(out, o-prev)
		}
		prev = o
	}
	return out
}

// DecodeLUTChunk reverses EncodeLUTChunk, producing exactly count absolute
// offsets.
func DecodeLUTChunk(b []byte, count int) ([]uint64, error) {
	out := make([]uint64, count)
	prev := uint64(0)
	off := 0
	for i := 0; i < count; i++ {
		v, n, err := readUvarint(b[off:])
		if err != nil {
			return nil, err
		}
		if i == 0 {
			prev = v
		} else {
			prev += v
		}
		out[i] = prev
		off += n
	}
	return out, nil
}
