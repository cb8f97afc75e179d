// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"

	"github.com/bureau-foundation/bureau-roles/lib/ref"
)

type plan struct {
	Room  ref.RoomID   `cbor:"room"`
	Users []ref.UserID `cbor:"users"`
	Tags  map[string]int
}

func TestDeterministicEncoding(t *testing.T) {
	t.Parallel()
	first := map[string]int{"b": 2, "a": 1, "c": 3}
	second := map[string]int{"c": 3, "a": 1, "b": 2}

	encodedFirst, err := Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	encodedSecond, err := Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(encodedFirst, encodedSecond) {
		t.Error("maps with equal content encoded differently")
	}
}

func TestRefTypesEncodeAsText(t *testing.T) {
	t.Parallel()
	original := plan{
		Room:  ref.MustParseRoomID("!room:test.local"),
		Users: []ref.UserID{ref.MustParseUserID("@a:test.local")},
		Tags:  map[string]int{"x": 1},
	}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(data, []byte("!room:test.local")) {
		t.Error("room ID not encoded as text")
	}

	var decoded plan
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Room != original.Room || len(decoded.Users) != 1 || decoded.Users[0] != original.Users[0] {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDecodeAnyUsesStringKeys(t *testing.T) {
	t.Parallel()
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "value"}})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	outer, ok := decoded.(map[string]any)["outer"].(map[string]any)
	if !ok || outer["inner"] != "value" {
		t.Errorf("decoded = %#v", decoded)
	}
}
