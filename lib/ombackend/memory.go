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

// Package ombackend provides concrete om.Backend implementations: an
// in-memory backend, an *os.File-backed backend, and a memory-mapped
// read-only backend.
package ombackend

import (
	"fmt"

	"github.com/weathergo/omfile/lib/om"
)

// Memory is a Backend backed entirely by a byte slice. It is useful for
// tests and for small files assembled in RAM before being handed to a
// faster backend.
type Memory struct {
	buf []byte
}

// NewMemory returns a Memory backend wrapping a copy of initial.
func NewMemory(initial []byte) *Memory {
	m := &Memory{buf: make([]byte, len(initial))}
	copy(m.buf, initial)
	return m
}

// Bytes returns the backend's current contents (not a copy).
func (m *Memory) Bytes() []byte { return m.buf }

func (m *Memory) Len() (uint64, error) { return uint64(len(m.buf)), nil }

func (m *Memory) GetBytes(offset, count uint64) ([]byte, error) {
	if offset+count > uint64(len(m.buf)) {
		return nil, &om.BackendReadError{Offset: offset, Count: count,
			Cause: fmt.Errorf("range exceeds backend length %d", len(m.buf))}
	}
	return m.buf[offset : offset+count], nil
}

func (m *Memory) GetBytesOwned(offset, count uint64) ([]byte, error) {
	b, err := m.GetBytes(offset, count)
	if err != nil {
		return nil, err
	}
	owned := make([]byte, len(b))
	copy(owned, b)
	return owned, nil
}

func (m *Memory) Prefetch(offset, count uint64) {}

func (m *Memory) PreRead(offset, count uint64) error { return nil }

func (m *Memory) Write(p []byte) error {
	m.buf = append(m.buf, p...)
	return nil
}

func (m *Memory) WriteAt(p []byte, offset uint64) error {
	if offset+uint64(len(p)) > uint64(len(m.buf)) {
		return &om.BackendWriteError{Cause: fmt.Errorf("write at %d, len %d exceeds backend length %d",
			offset, len(p), len(m.buf))}
	}
	copy(m.buf[offset:], p)
	return nil
}

func (m *Memory) Sync() error { return nil }
