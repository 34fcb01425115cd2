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

// Magic is the 2-byte "OM" magic.
var Magic = [2]byte{0x4F, 0x4D}

const (
	// VersionLegacyArraysOnly1 and VersionLegacyArraysOnly2 are
	// recognized legacy layouts (root variable embedded right after the
	// header, no trailer). Neither is readable or writable by this
	// package.
	VersionLegacyArraysOnly1 uint8 = 1
	VersionLegacyArraysOnly2 uint8 = 2

	// VersionTrailer is the current layout: the root variable is written
	// last and pointed to by the trailer.
	VersionTrailer uint8 = 3
)

// HeaderSize is the fixed, 8-byte-aligned header: 2 magic bytes, 1 version
// byte, 5 padding bytes.
const HeaderSize = 8

// TrailerSize is the fixed trailer: 2 magic bytes, 1 version byte, 5
// padding bytes, an 8-byte root offset, an 8-byte root size.
const TrailerSize = 24

// EncodeHeader writes the 8-byte header for a trailer-based (version 3)
// file.
func EncodeHeader() [HeaderSize]byte {
	var b [HeaderSize]byte
	b[0], b[1] = Magic[0], Magic[1]
	b[2] = VersionTrailer
	return b
}

// DecodeHeader parses the fixed header, returning the version byte.
func DecodeHeader(b []byte) (version uint8, err error) {
	if len(b) < HeaderSize || b[0] != Magic[0] || b[1] != Magic[1] {
		return 0, ErrNotAnOmFile
	}
	version = b[2]
	if version == 0 {
		return 0, ErrNotAnOmFile
	}
	return version, nil
}

// Trailer points to the root variable record.
type Trailer struct {
	RootOffset uint64
	RootSize   uint64
}

// Encode writes the 24-byte trailer.
func (t Trailer) Encode() [TrailerSize]byte {
	var b [TrailerSize]byte
	b[0], b[1] = Magic[0], Magic[1]
	b[2] = VersionTrailer
	binary.LittleEndian.PutUint64(b[8:16], t.RootOffset)
	binary.LittleEndian.PutUint64(b[16:24], t.RootSize)
	return b
}

// DecodeTrailer parses the 24-byte trailer.
func DecodeTrailer(b []byte) (Trailer, error) {
	if len(b) < TrailerSize || b[0] != Magic[0] || b[1] != Magic[1] {
		return Trailer{}, ErrNotAnOmFile
	}
	if b[2] != VersionTrailer {
		return Trailer{}, ErrNotAnOmFile
	}
	return Trailer{
		RootOffset: binary.LittleEndian.Uint64(b[8:16]),
		RootSize:   binary.LittleEndian.Uint64(b[16:24]),
	}, nil
}

// align8 rounds x up to the next multiple of 8.
func align8(x uint64) uint64 {
	return (x + 7) &^ 7
}
