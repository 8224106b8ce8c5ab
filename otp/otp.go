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

// Package otp accesses the one-time-programmable customer key region through
// the platform mailbox utility.
//
// The key region holds KeyLen bytes exposed by the mailbox as 32-bit words
// in hexadecimal form. Programming is irreversible, callers are expected to
// confirm with the operator before writing.
package otp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// KeyLen is the size of the OTP customer key region.
	KeyLen = 32

	words = KeyLen / 4
)

// Client shells out to the platform mailbox command for OTP access.
type Client struct {
	// Path of the mailbox command.
	Path string
}

// ReadKey returns the customer key region. An all-zero key indicates an
// unprogrammed region.
func (c *Client) ReadKey() ([]byte, error) {
	out, err := c.run("read-customer-key")

	if err != nil {
		return nil, err
	}

	return parseWords(out)
}

// WriteKey programs the customer key region and verifies it by reading it
// back, a mismatch is fatal.
//
// *WARNING*: OTP programming is a one-time irreversible operation.
func (c *Client) WriteKey(key []byte) error {
	if len(key) != KeyLen {
		return fmt.Errorf("invalid key size %d, expected %d", len(key), KeyLen)
	}

	args := []string{"write-customer-key"}

	for i := 0; i < words; i++ {
		args = append(args, fmt.Sprintf("%08x", binary.BigEndian.Uint32(key[i*4:])))
	}

	if _, err := c.run(args...); err != nil {
		return err
	}

	readback, err := c.ReadKey()

	if err != nil {
		return fmt.Errorf("could not read back OTP key: %v", err)
	}

	if !bytes.Equal(readback, key) {
		return errors.New("OTP readback mismatch after write")
	}

	return nil
}

func (c *Client) run(args ...string) (string, error) {
	out, err := exec.Command(c.Path, args...).Output()

	if err != nil {
		var exitErr *exec.ExitError

		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("mailbox command failed: %v: %s", err, bytes.TrimSpace(exitErr.Stderr))
		}

		return "", fmt.Errorf("mailbox command failed: %v", err)
	}

	return string(out), nil
}

// parseWords decodes the whitespace-separated hex words printed by the
// mailbox command into key bytes.
func parseWords(out string) ([]byte, error) {
	fields := strings.Fields(out)

	if len(fields) != words {
		return nil, fmt.Errorf("unexpected mailbox output, %d words instead of %d", len(fields), words)
	}

	key := make([]byte, KeyLen)

	for i, f := range fields {
		w, err := strconv.ParseUint(strings.TrimPrefix(f, "0x"), 16, 32)

		if err != nil {
			return nil, fmt.Errorf("invalid mailbox word %q: %v", f, err)
		}

		binary.BigEndian.PutUint32(key[i*4:], uint32(w))
	}

	return key, nil
}
