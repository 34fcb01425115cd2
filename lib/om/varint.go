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

import "encoding/binary"

func appendUvarintOm(b []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func readUvarintOm(b []byte) (v uint64, n int, err error) {
	v, n = binary.Uvarint(b)
	if n <= 0 {
		return 0, 0, &DecoderError{Message: "om: truncated varint in LUT directory"}
	}
	return v, n, nil
}

// lutDirectory describes the byte layout written by encodeLUT: a count of
// LUT-subchunks followed by each subchunk's compressed length. Both start
// offsets below are relative to the first byte of the LUT region, so a
// reader can turn any subchunk index into a file byte range.
type lutDirectory struct {
	subchunkLengths []uint64
	subchunkStarts  []uint64
	bodyStart       uint64
}

func decodeLUTDirectory(lut []byte) (lutDirectory, error) {
	count, n, err := readUvarintOm(lut)
	if err != nil {
		return lutDirectory{}, err
	}
	off := n
	lengths := make([]uint64, count)
	for i := range lengths {
		l, ln, err := readUvarintOm(lut[off:])
		if err != nil {
			return lutDirectory{}, err
		}
		lengths[i] = l
		off += ln
	}
	starts := make([]uint64, count)
	cursor := uint64(off)
	for i, l := range lengths {
		starts[i] = cursor
		cursor += l
	}
	return lutDirectory{subchunkLengths: lengths, subchunkStarts: starts, bodyStart: uint64(off)}, nil
}
