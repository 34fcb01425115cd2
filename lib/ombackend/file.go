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
	"os"

	"github.com/weathergo/omfile/lib/om"
)

// File is a Backend backed by an *os.File, using ReadAt/WriteAt so that
// multiple File values (or multiple readers wrapping one *os.File) can be
// used concurrently.
type File struct {
	f *os.File
}

// NewFile wraps an already-open *os.File. The caller retains ownership of
// f and must Close it themselves.
func NewFile(f *os.File) *File { return &File{f: f} }

func (b *File) Len() (uint64, error) {
	fi, err := b.f.Stat()
	if err != nil {
		return 0, &om.BackendReadError{Cause: err}
	}
	return uint64(fi.Size()), nil
}

// GetBytes always returns a *om.NotImplementedError: an *os.File cannot
// lend a borrowed slice view. Callers should use om.Read, which falls back
// to GetBytesOwned automatically.
func (b *File) GetBytes(offset, count uint64) ([]byte, error) {
	return nil, &om.NotImplementedError{Feature: "ombackend.File.GetBytes (borrowed view)"}
}

func (b *File) GetBytesOwned(offset, count uint64) ([]byte, error) {
	buf := make([]byte, count)
	if _, err := b.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, &om.BackendReadError{Offset: offset, Count: count, Cause: err}
	}
	return buf, nil
}

func (b *File) Prefetch(offset, count uint64) {}

func (b *File) PreRead(offset, count uint64) error { return nil }

func (b *File) Write(p []byte) error {
	if _, err := b.f.Write(p); err != nil {
		return &om.BackendWriteError{Cause: err}
	}
	return nil
}

func (b *File) WriteAt(p []byte, offset uint64) error {
	if _, err := b.f.WriteAt(p, int64(offset)); err != nil {
		return &om.BackendWriteError{Cause: err}
	}
	return nil
}

func (b *File) Sync() error {
	if err := b.f.Sync(); err != nil {
		return &om.BackendWriteError{Cause: err}
	}
	return nil
}
