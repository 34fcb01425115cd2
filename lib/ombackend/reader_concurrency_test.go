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
	"context"
	"os"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/weathergo/omfile/lib/om"
)

// buildConcurrencyFixture writes an 8x8 float32 array, evenly divided into
// 2x2 chunks, to a real file on disk.
func buildConcurrencyFixture(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	defer f.Close()

	backend := NewFile(f)
	w, err := om.NewWriter(backend)
	if err != nil {
		t.Fatalf("om.NewWriter() error = %v", err)
	}

	dims := []uint64{8, 8}
	chunks := []uint64{2, 2}
	enc, err := om.PrepareArray[float32](w, dims, chunks, om.CompressionPForDelta2D, 1.0, 0.0)
	if err != nil {
		t.Fatalf("PrepareArray() error = %v", err)
	}
	// chunks divide dims evenly, so every chunk is a plain 2x2 block;
	// enumerate chunk-grid coordinates in row-major order.
	for ci := uint64(0); ci < 4; ci++ {
		for cj := uint64(0); cj < 4; cj++ {
			chunk := make([]float32, 4)
			for li := uint64(0); li < 2; li++ {
				for lj := uint64(0); lj < 2; lj++ {
					gi := ci*2 + li
					gj := cj*2 + lj
					chunk[li*2+lj] = float32(gi*8 + gj)
				}
			}
			if err := enc.WriteChunk(chunk); err != nil {
				t.Fatalf("WriteChunk() error = %v", err)
			}
		}
	}
	if err := om.WriteArray(w, "data", enc, nil); err != nil {
		t.Fatalf("WriteArray() error = %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
}

// TestConcurrentReadersOverSharedMmap checks that several readers over
// one shared memory-mapped backend can run in parallel: reads are pure
// over immutable bytes.
func TestConcurrentReadersOverSharedMmap(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/concurrency.om"
	buildConcurrencyFixture(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open() error = %v", err)
	}
	defer f.Close()

	shared, err := OpenMmap(f)
	if err != nil {
		t.Fatalf("OpenMmap() error = %v", err)
	}
	defer shared.Close()

	g, _ := errgroup.WithContext(context.Background())
	for row := uint64(0); row < 8; row++ {
		row := row
		g.Go(func() error {
			// Each goroutine opens its own independent Reader over the
			// one shared Mmap backend.
			r, err := om.OpenReader(shared)
			if err != nil {
				return err
			}
			root, err := r.Root()
			if err != nil {
				return err
			}
			dst := make([]float32, 8)
			if err := om.ReadArrayInto[float32](root, []uint64{row, 0}, []uint64{1, 8}, dst); err != nil {
				return err
			}
			for col, v := range dst {
				want := float32(row*8 + uint64(col))
				if v != want {
					t.Errorf("row %d, col %d = %v, want %v", row, col, v, want)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent reads error = %v", err)
	}
}
