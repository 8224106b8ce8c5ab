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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Signer produces a detached signature over a byte buffer, using a private
// key identified out-of-band.
type Signer interface {
	Sign(data []byte, h crypto.Hash) ([]byte, error)
}

// LocalSigner signs with a PEM-encoded RSA private key held in memory.
type LocalSigner struct {
	key *rsa.PrivateKey
}

// NewLocalSigner parses a PEM-encoded RSA private key in PKCS#1 or PKCS#8
// form and asserts its size is exactly KeyBits.
func NewLocalSigner(pemBytes []byte) (*LocalSigner, error) {
	block, _ := pem.Decode(pemBytes)

	if block == nil {
		return nil, errors.New("no PEM block in private key")
	}

	var key *rsa.PrivateKey

	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)

		if err != nil {
			return nil, fmt.Errorf("private key parsing failed: %v", err)
		}

		key = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)

		if err != nil {
			return nil, fmt.Errorf("private key parsing failed: %v", err)
		}

		rsaKey, ok := k.(*rsa.PrivateKey)

		if !ok {
			return nil, errors.New("private key is not an RSA key")
		}

		key = rsaKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	if key.N.BitLen() != KeyBits {
		return nil, fmt.Errorf("unsupported RSA key size %d, expected %d bits", key.N.BitLen(), KeyBits)
	}

	return &LocalSigner{key: key}, nil
}

// Public returns the public half of the signing key.
func (s *LocalSigner) Public() *rsa.PublicKey {
	return &s.key.PublicKey
}

// Sign computes a PKCS#1 v1.5 signature over data with the given digest
// algorithm.
func (s *LocalSigner) Sign(data []byte, h crypto.Hash) ([]byte, error) {
	digest := h.New()
	digest.Write(data)

	return rsa.SignPKCS1v15(rand.Reader, s.key, h, digest.Sum(nil))
}

// CommandSigner delegates signature computation to an external command, for
// keys held in HSMs or remote signing services.
//
// The command is invoked with any configured arguments followed by an
// algorithm selector flag and the path of a temporary file holding the exact
// bytes to sign. It must print the signature as a hex string on standard
// output and exit zero. The temporary file is removed on every exit path.
type CommandSigner struct {
	Path string
	Args []string
}

func (s *CommandSigner) Sign(data []byte, h crypto.Hash) ([]byte, error) {
	var alg string

	switch h {
	case crypto.SHA1:
		alg = "sha1"
	case crypto.SHA256:
		alg = "sha256"
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %v", h)
	}

	tmp, err := os.CreateTemp("", "simage-*.bin")

	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}

	if err = tmp.Close(); err != nil {
		return nil, err
	}

	args := append([]string{}, s.Args...)
	args = append(args, "-a", alg, tmp.Name())

	out, err := exec.Command(s.Path, args...).Output()

	if err != nil {
		var exitErr *exec.ExitError

		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("signing command failed: %v: %s", err, bytes.TrimSpace(exitErr.Stderr))
		}

		return nil, fmt.Errorf("signing command failed: %v", err)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(string(out)))

	if err != nil {
		return nil, fmt.Errorf("invalid signature from signing command: %v", err)
	}

	return sig, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key in PKIX or PKCS#1 form,
// used when the private key is only reachable through a CommandSigner.
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)

	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)

		if err != nil {
			return nil, err
		}

		pub, ok := k.(*rsa.PublicKey)

		if !ok {
			return nil, errors.New("public key is not an RSA key")
		}

		return pub, nil
	}

	return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
}
