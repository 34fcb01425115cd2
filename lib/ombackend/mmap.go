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

package ombackend

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/weathergo/omfile/lib/om"
)

// Mmap is a read-only Backend backed by a memory-mapped file. The Mmap
// owns the mapping; callers must Close when done (or let om.Reader.Close
// do it).
//
// Multiple readers may share one Mmap concurrently: reads are pure views
// over immutable, already-written bytes.
type Mmap struct {
	region mmap.MMap
}

// OpenMmap memory-maps f for reading. f may be closed by the caller once
// OpenMmap returns; the mapping itself keeps the pages resident.
func OpenMmap(f *os.File) (*Mmap, error) {
	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("ombackend: mmap: %w", err)
	}
	return &Mmap{region: region}, nil
}

// Close unmaps the backing pages.
func (b *Mmap) Close() error {
	return b.region.Unmap()
}

func (b *Mmap) Len() (uint64, error) { return uint64(len(b.region)), nil }

func (b *Mmap) GetBytes(offset, count uint64) ([]byte, error) {
	if offset+count > uint64(len(b.region)) {
		return nil, &om.BackendReadError{Offset: offset, Count: count,
			Cause: fmt.Errorf("range exceeds mapped length %d", len(b.region))}
	}
	return b.region[offset : offset+count], nil
}

func (b *Mmap) GetBytesOwned(offset, count uint64) ([]byte, error) {
	view, err := b.GetBytes(offset, count)
	if err != nil {
		return nil, err
	}
	owned := make([]byte, len(view))
	copy(owned, view)
	return owned, nil
}

// Prefetch hints the OS to bring pages into the page cache. The mmap-go
// package exposes no madvise wrapper, so this advisory hint is a no-op.
func (b *Mmap) Prefetch(offset, count uint64) {}

func (b *Mmap) PreRead(offset, count uint64) error { return nil }
