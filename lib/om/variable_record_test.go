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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroupRecordRoundTrip(t *testing.T) {
	children := []ChildRef{{Offset: 8, Size: 16}, {Offset: 32, Size: 8}}
	rec := EncodeGroupRecord("mygroup", children)

	if got := RecordSize(len("mygroup"), len(children)); got != uint64(len(rec)) {
		t.Errorf("RecordSize() = %d, want %d (actual encoded length)", got, len(rec))
	}

	header, err := decodeRecordPrefix(rec)
	if err != nil {
		t.Fatalf("decodeRecordPrefix() error = %v", err)
	}
	if header.DataType != DataTypeNone {
		t.Errorf("DataType = %v, want DataTypeNone", header.DataType)
	}
	if header.Name != "mygroup" {
		t.Errorf("Name = %q, want %q", header.Name, "mygroup")
	}
	if diff := cmp.Diff(children, header.Children); diff != "" {
		t.Errorf("Children mismatch (-want +got):\n%s", diff)
	}
	if len(header.Rest) != 0 {
		t.Errorf("Rest = %v, want empty for a group record", header.Rest)
	}
}

func TestScalarRecordRoundTrip(t *testing.T) {
	valueBytes := encodeScalarValue(int32(12323154))
	rec := EncodeScalarRecord(DataTypeInt32, "int32", nil, valueBytes)

	header, err := decodeRecordPrefix(rec)
	if err != nil {
		t.Fatalf("decodeRecordPrefix() error = %v", err)
	}
	if header.DataType != DataTypeInt32 {
		t.Errorf("DataType = %v, want DataTypeInt32", header.DataType)
	}
	got, ok := decodeScalarValue[int32](header.DataType, header.Rest)
	if !ok || got != 12323154 {
		t.Errorf("decodeScalarValue() = (%d, %v), want (12323154, true)", got, ok)
	}
}

func TestStringScalarRoundTrip(t *testing.T) {
	valueBytes := encodeStringValue("hello")
	rec := EncodeScalarRecord(DataTypeString, "greeting", nil, valueBytes)

	header, err := decodeRecordPrefix(rec)
	if err != nil {
		t.Fatalf("decodeRecordPrefix() error = %v", err)
	}
	got, ok := decodeStringValue(header.Rest)
	if !ok || got != "hello" {
		t.Errorf("decodeStringValue() = (%q, %v), want (\"hello\", true)", got, ok)
	}
}

func TestArrayPayloadRoundTrip(t *testing.T) {
	payload := ArrayPayload{
		Compression: CompressionPForDelta2DInt16,
		ScaleFactor: 1.0,
		AddOffset:   0.0,
		Dimensions:  []uint64{5, 5},
		Chunks:      []uint64{2, 2},
		LutSize:     42,
		LutOffset:   128,
	}
	rec, err := EncodeArrayRecordTyped(DataTypeFloat32Array, "data", nil, payload)
	if err != nil {
		t.Fatalf("EncodeArrayRecordTyped() error = %v", err)
	}

	header, err := decodeRecordPrefix(rec)
	if err != nil {
		t.Fatalf("decodeRecordPrefix() error = %v", err)
	}
	if header.Name != "data" {
		t.Errorf("Name = %q, want %q", header.Name, "data")
	}
	got, err := DecodeArrayPayload(header.Rest)
	if err != nil {
		t.Fatalf("DecodeArrayPayload() error = %v", err)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("ArrayPayload round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayPayloadRankMismatchRejected(t *testing.T) {
	payload := ArrayPayload{Dimensions: []uint64{10, 10}, Chunks: []uint64{5}}
	if _, err := payload.Encode(); err != ErrMismatchingCubeDimensionLength {
		t.Fatalf("Encode() error = %v, want ErrMismatchingCubeDimensionLength", err)
	}
}

func TestDecodeRecordPrefixRejectsTruncated(t *testing.T) {
	rec := EncodeGroupRecord("abc", []ChildRef{{Offset: 1, Size: 2}})
	if _, err := decodeRecordPrefix(rec[:len(rec)-1]); err == nil {
		t.Fatalf("decodeRecordPrefix(truncated) = nil error, want an error")
	}
}

func TestDecodeRecordPrefixRejectsInvalidDataType(t *testing.T) {
	rec := EncodeGroupRecord("abc", nil)
	rec[0] = 0xFF
	if _, err := decodeRecordPrefix(rec); err != ErrInvalidDataType {
		t.Fatalf("decodeRecordPrefix() error = %v, want ErrInvalidDataType", err)
	}
}
