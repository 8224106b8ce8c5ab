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
	"crypto"
	"crypto/rsa"
	"io"
)

// BuildGen1 assembles a signed image for the first chip generation:
//
//	payload ‖ length ‖ key index ‖ RSA signature over SHA-1 ‖ HMAC-SHA1 digest
//
// The keyed digest carries boot-time integrity, no version or public key is
// embedded.
func BuildGen1(w io.Writer, payload []byte, keyIndex int, s Signer, digestKey []byte) error {
	b := &Builder{}

	b.AppendBytes(payload)
	b.AppendLength()

	if err := b.AppendKeyIndex(keyIndex); err != nil {
		return err
	}

	if err := b.AppendSignature(s, crypto.SHA1); err != nil {
		return err
	}

	b.AppendDigest(digestKey)

	return b.Finalize(w)
}

// BuildGen2 assembles a signed image for the second chip generation:
//
//	payload ‖ length ‖ key index ‖ version ‖ RSA signature over SHA-256 ‖ public key
//
// The embedded public key chain carries trust instead of a keyed digest, and
// the rollback version is checked by the ROM against hardware fuses.
func BuildGen2(w io.Writer, payload []byte, keyIndex int, version int, s Signer, pub *rsa.PublicKey) error {
	b := &Builder{}

	b.AppendBytes(payload)
	b.AppendLength()

	if err := b.AppendKeyIndex(keyIndex); err != nil {
		return err
	}

	if err := b.AppendVersion(version); err != nil {
		return err
	}

	if err := b.AppendSignature(s, crypto.SHA256); err != nil {
		return err
	}

	if err := b.AppendPublicKey(pub); err != nil {
		return err
	}

	return b.Finalize(w)
}
