// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		input         string
		wantLocalpart string
		wantServer    string
		wantErr       string
	}{
		{name: "simple", input: "@alice:example.org", wantLocalpart: "alice", wantServer: "example.org"},
		{name: "server with port", input: "@admin:localhost:6167", wantLocalpart: "admin", wantServer: "localhost:6167"},
		{name: "legacy uppercase localpart", input: "@Bob:example.org", wantLocalpart: "Bob", wantServer: "example.org"},
		{name: "empty", input: "", wantErr: "must start with @"},
		{name: "wrong sigil", input: "#alice:example.org", wantErr: "must start with @"},
		{name: "missing server", input: "@alice", wantErr: "missing :server"},
		{name: "empty localpart", input: "@:example.org", wantErr: "empty localpart"},
		{name: "empty server", input: "@alice:", wantErr: "empty server"},
		{name: "space in server", input: "@alice:exa mple.org", wantErr: "bad character"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			userID, err := ParseUserID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseUserID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("ParseUserID(%q) error = %q, want it to contain %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserID(%q): %v", test.input, err)
			}
			if userID.String() != test.input {
				t.Errorf("String() = %q, want %q", userID.String(), test.input)
			}
			if userID.Localpart() != test.wantLocalpart {
				t.Errorf("Localpart() = %q, want %q", userID.Localpart(), test.wantLocalpart)
			}
			if userID.Server() != test.wantServer {
				t.Errorf("Server() = %q, want %q", userID.Server(), test.wantServer)
			}
		})
	}
}

func TestParseRoomID(t *testing.T) {
	t.Parallel()

	valid := []string{"!abc123:example.org", "!opaque:localhost:6167"}
	for _, input := range valid {
		if _, err := ParseRoomID(input); err != nil {
			t.Errorf("ParseRoomID(%q): %v", input, err)
		}
	}

	invalid := []string{"", "abc:example.org", "#room:example.org", "!abc", "!:example.org", "!abc:"}
	for _, input := range invalid {
		if _, err := ParseRoomID(input); err == nil {
			t.Errorf("ParseRoomID(%q) succeeded, want error", input)
		}
	}
}

func TestParseRoomAlias(t *testing.T) {
	t.Parallel()

	alias, err := ParseRoomAlias("#ops:example.org")
	if err != nil {
		t.Fatalf("ParseRoomAlias: %v", err)
	}
	if alias.String() != "#ops:example.org" {
		t.Errorf("String() = %q", alias.String())
	}
	if _, err := ParseRoomAlias("!ops:example.org"); err == nil {
		t.Error("ParseRoomAlias accepted a room ID")
	}
}

func TestParseEventID(t *testing.T) {
	t.Parallel()

	if _, err := ParseEventID("$abc"); err != nil {
		t.Errorf("ParseEventID($abc): %v", err)
	}
	for _, input := range []string{"", "$", "abc"} {
		if _, err := ParseEventID(input); err == nil {
			t.Errorf("ParseEventID(%q) succeeded, want error", input)
		}
	}
}

func TestUserIDCompare(t *testing.T) {
	t.Parallel()

	alice := MustParseUserID("@alice:example.org")
	bob := MustParseUserID("@bob:example.org")
	if alice.Compare(bob) != -1 || bob.Compare(alice) != 1 || alice.Compare(alice) != 0 {
		t.Errorf("Compare ordering wrong: alice/bob=%d bob/alice=%d alice/alice=%d",
			alice.Compare(bob), bob.Compare(alice), alice.Compare(alice))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	type document struct {
		User  UserID    `json:"user"`
		Room  RoomID    `json:"room"`
		Alias RoomAlias `json:"alias"`
		Unset UserID    `json:"unset"`
	}

	original := document{
		User:  MustParseUserID("@alice:example.org"),
		Room:  MustParseRoomID("!abc:example.org"),
		Alias: MustParseRoomAlias("#ops:example.org"),
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"user":"@alice:example.org","room":"!abc:example.org","alias":"#ops:example.org","unset":""}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var decoded document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
	if !decoded.Unset.IsZero() {
		t.Error("empty string did not decode to zero UserID")
	}

	if err := json.Unmarshal([]byte(`{"user":"alice"}`), &decoded); err == nil {
		t.Error("Unmarshal accepted an invalid user ID")
	}
}
