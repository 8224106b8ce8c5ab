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

// Package simage builds signed second-stage boot images.
//
// A signed image is an ordered byte stream: payload, 32-bit total length,
// key index, optional rollback version, detached RSA signature and, for one
// chip generation, a keyed integrity digest. The signature and digest cover
// only the bytes preceding them, so fields are appended in a fixed order and
// never reordered.
package simage

import (
	"bytes"
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MaxImageSize bounds the finished signed image.
	MaxImageSize = 128 * 1024

	// KeyBits is the only accepted RSA key size.
	KeyBits = 2048

	// SignatureLen is the width of an RSA-2048 signature.
	SignatureLen = KeyBits / 8

	// MaxKeyIndex is the highest device key slot; CustomerKeyIndex selects
	// the customer signing key held in OTP instead.
	MaxKeyIndex      = 4
	CustomerKeyIndex = 16

	// MaxVersion is the highest rollback-prevention version, bounded by
	// the number of hardware fuse bits.
	MaxVersion = 32
)

// Builder accumulates the fields of a signed image. The zero value is ready
// for use. Nothing is written to the destination until Finalize.
type Builder struct {
	buf bytes.Buffer
}

// Pos returns the number of bytes appended so far.
func (b *Builder) Pos() int {
	return b.buf.Len()
}

// AppendBytes appends raw payload bytes.
func (b *Builder) AppendBytes(p []byte) {
	b.buf.Write(p)
}

// AppendPayload appends raw payload bytes from r.
func (b *Builder) AppendPayload(r io.Reader) error {
	_, err := io.Copy(&b.buf, r)
	return err
}

// AppendLength appends the running total length of everything appended so
// far as a 32-bit little-endian field.
func (b *Builder) AppendLength() {
	n := uint32(b.buf.Len())
	_ = binary.Write(&b.buf, binary.LittleEndian, n)
}

// AppendKeyIndex appends the 32-bit little-endian key index. Valid indices
// are the device key slots 0 to MaxKeyIndex and CustomerKeyIndex, anything
// else is rejected before any bytes are appended.
func (b *Builder) AppendKeyIndex(index int) error {
	if (index < 0 || index > MaxKeyIndex) && index != CustomerKeyIndex {
		return fmt.Errorf("invalid key index %d, expected 0-%d or %d", index, MaxKeyIndex, CustomerKeyIndex)
	}

	return binary.Write(&b.buf, binary.LittleEndian, uint32(index))
}

// AppendVersion appends the 32-bit little-endian rollback-prevention
// version. The deployable range is enforced by hardware fuses, values
// outside 0 to MaxVersion are rejected before any bytes are appended.
func (b *Builder) AppendVersion(version int) error {
	if version < 0 || version > MaxVersion {
		return fmt.Errorf("invalid rollback version %d, expected 0-%d", version, MaxVersion)
	}

	return binary.Write(&b.buf, binary.LittleEndian, uint32(version))
}

// AppendPublicKey appends the RSA public key as a fixed-width little-endian
// modulus followed by a 32-bit little-endian exponent. Any key size other
// than KeyBits is rejected.
func (b *Builder) AppendPublicKey(pub *rsa.PublicKey) error {
	if pub.N.BitLen() != KeyBits {
		return fmt.Errorf("unsupported RSA key size %d, expected %d bits", pub.N.BitLen(), KeyBits)
	}

	mod := make([]byte, KeyBits/8)
	pub.N.FillBytes(mod)
	reverse(mod)

	b.buf.Write(mod)

	return binary.Write(&b.buf, binary.LittleEndian, uint32(pub.E))
}

// AppendSignature appends a detached signature over all bytes appended so
// far, computed by the signing backend with the given digest algorithm.
func (b *Builder) AppendSignature(s Signer, h crypto.Hash) error {
	sig, err := s.Sign(b.buf.Bytes(), h)

	if err != nil {
		return err
	}

	if len(sig) != SignatureLen {
		return fmt.Errorf("unexpected signature length %d, expected %d", len(sig), SignatureLen)
	}

	b.buf.Write(sig)

	return nil
}

// AppendDigest appends a keyed HMAC-SHA1 digest over all bytes appended so
// far.
func (b *Builder) AppendDigest(key []byte) {
	mac := hmac.New(sha1.New, key)
	mac.Write(b.buf.Bytes())
	b.buf.Write(mac.Sum(nil))
}

// Finalize writes the accumulated image to w, rejecting it without writing
// anything when the maximum size is exceeded.
func (b *Builder) Finalize(w io.Writer) error {
	if b.buf.Len() > MaxImageSize {
		return fmt.Errorf("signed image is %d bytes, limit is %d", b.buf.Len(), MaxImageSize)
	}

	_, err := w.Write(b.buf.Bytes())

	return err
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
