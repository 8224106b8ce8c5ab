// Copyright 2025 The EEPROM Tools authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package simage

import (
	"bytes"
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

func TestBuildGen1(t *testing.T) {
	key := testKey(t)
	signer := &LocalSigner{key: key}

	payload := bytes.Repeat([]byte{0xb0}, 64*1024)
	digestKey := []byte("integrity key")

	var out bytes.Buffer

	if err := BuildGen1(&out, payload, 1, signer, digestKey); err != nil {
		t.Fatalf("BuildGen1: %v", err)
	}

	buf := out.Bytes()

	// payload ‖ length ‖ key index ‖ signature ‖ digest
	want := len(payload) + 4 + 4 + SignatureLen + sha1.Size

	if len(buf) != want {
		t.Fatalf("image is %d bytes, want %d", len(buf), want)
	}

	if n := binary.LittleEndian.Uint32(buf[len(payload):]); int(n) != len(payload) {
		t.Fatalf("length field is %d, want %d", n, len(payload))
	}

	if index := binary.LittleEndian.Uint32(buf[len(payload)+4:]); index != 1 {
		t.Fatalf("key index field is %d, want 1", index)
	}

	// the SHA-1 signature covers every byte preceding it
	sigOff := len(buf) - sha1.Size - SignatureLen
	digest := sha1.Sum(buf[:sigOff])

	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], buf[sigOff:sigOff+SignatureLen]); err != nil {
		t.Fatalf("signature verification failed: %v", err)
	}

	// the keyed digest covers every byte preceding it
	mac := hmac.New(sha1.New, digestKey)
	mac.Write(buf[:len(buf)-sha1.Size])

	if !hmac.Equal(mac.Sum(nil), buf[len(buf)-sha1.Size:]) {
		t.Fatal("integrity digest verification failed")
	}
}

func TestBuildGen2(t *testing.T) {
	key := testKey(t)
	signer := &LocalSigner{key: key}

	payload := bytes.Repeat([]byte{0xb2}, 64*1024)

	var out bytes.Buffer

	if err := BuildGen2(&out, payload, CustomerKeyIndex, 7, signer, &key.PublicKey); err != nil {
		t.Fatalf("BuildGen2: %v", err)
	}

	buf := out.Bytes()

	// payload ‖ length ‖ key index ‖ version ‖ signature ‖ public key
	pubLen := KeyBits/8 + 4
	want := len(payload) + 4 + 4 + 4 + SignatureLen + pubLen

	if len(buf) != want {
		t.Fatalf("image is %d bytes, want %d", len(buf), want)
	}

	if n := binary.LittleEndian.Uint32(buf[len(payload):]); int(n) != len(payload) {
		t.Fatalf("length field is %d, want %d", n, len(payload))
	}

	if index := binary.LittleEndian.Uint32(buf[len(payload)+4:]); index != CustomerKeyIndex {
		t.Fatalf("key index field is %d, want %d", index, CustomerKeyIndex)
	}

	if version := binary.LittleEndian.Uint32(buf[len(payload)+8:]); version != 7 {
		t.Fatalf("version field is %d, want 7", version)
	}

	// the SHA-256 signature covers every byte preceding it
	sigOff := len(buf) - pubLen - SignatureLen
	digest := sha256.Sum256(buf[:sigOff])

	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], buf[sigOff:sigOff+SignatureLen]); err != nil {
		t.Fatalf("signature verification failed: %v", err)
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	key := testKey(t)
	signer := &LocalSigner{key: key}

	var out bytes.Buffer

	if err := BuildGen1(&out, []byte("x"), 5, signer, []byte("k")); err == nil {
		t.Fatal("BuildGen1 accepted key index 5")
	}

	if err := BuildGen2(&out, []byte("x"), 0, 33, signer, &key.PublicKey); err == nil {
		t.Fatal("BuildGen2 accepted version 33")
	}

	// nothing is ever written on failure
	if out.Len() != 0 {
		t.Fatalf("failed builds wrote %d bytes", out.Len())
	}
}
