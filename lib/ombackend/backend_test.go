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
	"testing"

	"github.com/weathergo/omfile/lib/om"
)

func TestMemoryGetBytesAndOwned(t *testing.T) {
	m := NewMemory([]byte("hello world"))
	got, err := m.GetBytes(6, 5)
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if string(got) != "world" {
		t.Errorf("GetBytes() = %q, want %q", got, "world")
	}

	owned, err := m.GetBytesOwned(0, 5)
	if err != nil {
		t.Fatalf("GetBytesOwned() error = %v", err)
	}
	if string(owned) != "hello" {
		t.Errorf("GetBytesOwned() = %q, want %q", owned, "hello")
	}
	// mutating the owned copy must not affect the backend.
	owned[0] = 'X'
	if m.Bytes()[0] == 'X' {
		t.Errorf("GetBytesOwned() returned a view, not a copy")
	}
}

func TestMemoryOutOfRangeRead(t *testing.T) {
	m := NewMemory([]byte("abc"))
	if _, err := m.GetBytes(0, 10); err == nil {
		t.Fatalf("GetBytes() out of range = nil error, want error")
	}
}

func TestMemoryWriteAppendsAndWriteAtOverwrites(t *testing.T) {
	m := NewMemory(nil)
	if err := m.Write([]byte("abc")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := m.Write([]byte("def")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if string(m.Bytes()) != "abcdef" {
		t.Fatalf("Bytes() = %q, want %q", m.Bytes(), "abcdef")
	}
	if err := m.WriteAt([]byte("XY"), 1); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}
	if string(m.Bytes()) != "aXYdef" {
		t.Fatalf("Bytes() = %q, want %q", m.Bytes(), "aXYdef")
	}
}

func TestFileBackendGetBytesIsNotImplemented(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(dir + "/backend.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	b := NewFile(f)
	if err := b.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := b.GetBytes(0, 4); err == nil {
		t.Fatalf("GetBytes() = nil error, want *om.NotImplementedError")
	}
	owned, err := b.GetBytesOwned(2, 4)
	if err != nil {
		t.Fatalf("GetBytesOwned() error = %v", err)
	}
	if string(owned) != "2345" {
		t.Errorf("GetBytesOwned() = %q, want %q", owned, "2345")
	}

	// om.Read falls through from GetBytes to GetBytesOwned transparently.
	fallback, err := om.Read(b, 0, 3)
	if err != nil {
		t.Fatalf("om.Read() error = %v", err)
	}
	if string(fallback) != "012" {
		t.Errorf("om.Read() = %q, want %q", fallback, "012")
	}
}

func TestMmapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/mmap.bin"
	if err := os.WriteFile(path, []byte("mapped content"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	m, err := OpenMmap(f)
	if err != nil {
		t.Fatalf("OpenMmap() error = %v", err)
	}
	defer m.Close()

	length, err := m.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if length != uint64(len("mapped content")) {
		t.Errorf("Len() = %d, want %d", length, len("mapped content"))
	}
	got, err := m.GetBytes(7, 7)
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if string(got) != "content" {
		t.Errorf("GetBytes() = %q, want %q", got, "content")
	}
}
