// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/bureau-roles/lib/secret"
)

func generate(t *testing.T) *Keypair {
	t.Helper()
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	t.Cleanup(func() { keypair.Close() })
	return keypair
}

func identityBuffer(t *testing.T, keypair *Keypair) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes(keypair.IdentityFile())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestGenerateKeypair(t *testing.T) {
	t.Parallel()
	keypair := generate(t)
	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("private key has wrong prefix")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q", keypair.PublicKey)
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey: %v", err)
	}
	if !strings.Contains(string(keypair.IdentityFile()), "# public key: "+keypair.PublicKey) {
		t.Error("identity file lacks public key comment")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()
	first, second := generate(t), generate(t)
	plaintext := "MATRIX_ADMIN_TOKEN=syt_secret\n"

	sealed, err := Seal([]byte(plaintext), []string{first.PublicKey, second.PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatal("Seal output not recognized by IsSealed")
	}
	if bytes.Contains(sealed, []byte("syt_secret")) {
		t.Fatal("ciphertext contains plaintext")
	}

	for name, keypair := range map[string]*Keypair{"first": first, "second": second} {
		opened, err := Open(sealed, identityBuffer(t, keypair))
		if err != nil {
			t.Fatalf("%s: Open: %v", name, err)
		}
		if opened.String() != plaintext {
			t.Errorf("%s: plaintext = %q", name, opened.String())
		}
		opened.Close()
	}
}

func TestOpenWrongIdentity(t *testing.T) {
	t.Parallel()
	owner, stranger := generate(t), generate(t)
	sealed, err := Seal([]byte("token"), []string{owner.PublicKey})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(sealed, identityBuffer(t, stranger)); err == nil {
		t.Error("Open with the wrong identity succeeded")
	}
}

func TestSealValidation(t *testing.T) {
	t.Parallel()
	if _, err := Seal([]byte("x"), nil); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("no recipients: err = %v", err)
	}
	if _, err := Seal([]byte("x"), []string{"age1notakey"}); err == nil {
		t.Error("invalid recipient accepted")
	}
	if err := ParsePublicKey("ssh-ed25519 AAAA"); err == nil {
		t.Error("ParsePublicKey accepted a non-age key")
	}
}

func TestIsSealed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		data string
		want bool
	}{
		{"MATRIX_ADMIN_TOKEN=abc\n", false},
		{"", false},
		{"\n-----BEGIN AGE ENCRYPTED FILE-----\nYWdl\n", true},
		{"age-encryption.org/v1\n-> X25519 abc\n", true},
	}
	for _, test := range tests {
		if got := IsSealed([]byte(test.data)); got != test.want {
			t.Errorf("IsSealed(%q) = %v, want %v", test.data, got, test.want)
		}
	}
}
