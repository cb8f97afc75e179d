// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2):
// map keys sorted, integers in their shortest form, no
// indefinite-length items. Equal values always produce equal bytes,
// which is what lets the journal fingerprint a plan by hashing its
// encoding.
var encMode cbor.EncMode

// decMode accepts any well-formed CBOR. Fields the target struct does
// not declare are skipped, so journal rows written by a newer build
// still decode.
var decMode cbor.DecMode

func init() {
	encOptions := cbor.CoreDetEncOptions()
	// Identifier types (ref.UserID, ref.RoomID) keep their value in an
	// unexported field and implement encoding.TextMarshaler. Encoding
	// them as CBOR text strings through MarshalText keeps them
	// readable; the struct encoding would see no exported fields and
	// write an empty map.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	var err error
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// CBOR permits non-string map keys, so by default a map
		// decoded into an any-typed target becomes
		// map[interface{}]interface{}. Journal plans only use string
		// keys, and map[string]any is what encoding/json and the rest
		// of the code expect. Struct fields are not affected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// The decoding half of TextMarshalerTextString above:
		// identifier types come back through UnmarshalText, which also
		// revalidates them.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR with Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
