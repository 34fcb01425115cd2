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

// ReadBackend is the abstract random-access read side of a byte backend.
// Implementations may embed memory, a local file, a memory map, or a
// remote object store behind this interface. A backend lacking an optional
// capability returns a *NotImplementedError for it; the core falls through
// transparently. GetBytes may be satisfied by GetBytesOwned and vice
// versa, via the Read helper below.
type ReadBackend interface {
	// Len returns the total size of the backend's bytes.
	Len() (uint64, error)

	// GetBytes returns a borrowed slice view over [offset, offset+count).
	// It returns a *NotImplementedError if the backend cannot lend a
	// borrowed view (e.g. a network backend); callers should fall back to
	// GetBytesOwned in that case.
	GetBytes(offset, count uint64) ([]byte, error)

	// GetBytesOwned returns a freshly allocated copy of [offset, offset+count).
	GetBytesOwned(offset, count uint64) ([]byte, error)

	// Prefetch is an advisory hint that [offset, offset+count) will likely
	// be read soon. Implementations may treat it as a no-op.
	Prefetch(offset, count uint64)

	// PreRead is a blocking warm-up hook for backends (e.g. network-backed)
	// that benefit from pre-fetching before the actual read.
	PreRead(offset, count uint64) error
}

// WriteBackend is the abstract append-only write side of a byte backend.
type WriteBackend interface {
	// Write appends bytes to the backend, returning the error wrapped as a
	// *BackendWriteError on failure.
	Write(p []byte) error

	// WriteAt writes bytes at an absolute offset. Used only for the final
	// trailer patch-up, never to mutate already-written record bytes.
	WriteAt(p []byte, offset uint64) error

	// Sync flushes any OS-level buffering to stable storage.
	Sync() error
}

// Backend is the general backend type; it embeds only ReadBackend. The
// write side is the separate WriteBackend interface: most backends are
// read-only or write-only in practice, since a writer holds exclusive
// access to its backend.
type Backend interface {
	ReadBackend
}

// Read is a convenience helper that prefers GetBytes (zero-copy) and falls
// back to GetBytesOwned when the backend does not support borrowed views.
func Read(b ReadBackend, offset, count uint64) ([]byte, error) {
	data, err := b.GetBytes(offset, count)
	if _, ok := err.(*NotImplementedError); ok {
		return b.GetBytesOwned(offset, count)
	}
	return data, err
}
