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

package eeprom

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestUpdateRoundTrip(t *testing.T) {
	for _, test := range []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"short", []byte("BOOT_UART=1\n")},
		{"unaligned", bytes.Repeat([]byte{0x5a}, 101)},
		{"aligned", bytes.Repeat([]byte{0x5a}, 1024)},
		{"max", bytes.Repeat([]byte{0x5a}, MaxFileSize)},
	} {
		t.Run(test.name, func(t *testing.T) {
			// bootconf.txt is the last entry, bounded by the trailer
			img, err := Parse(testImage(t, nil,
				testFile{"pubkey.bin", []byte("key")},
				testFile{"bootconf.txt", []byte("old")},
			))

			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			if err = img.UpdateFile("bootconf.txt", test.payload); err != nil {
				t.Fatalf("UpdateFile: %v", err)
			}

			got, err := img.GetFile("bootconf.txt")

			if err != nil {
				t.Fatalf("GetFile: %v", err)
			}

			if !bytes.Equal(got, test.payload) {
				t.Fatalf("got %d bytes, want %d", len(got), len(test.payload))
			}

			// the other file never moves
			key, err := img.GetFile("pubkey.bin")

			if err != nil {
				t.Fatalf("GetFile: %v", err)
			}

			if !bytes.Equal(key, []byte("key")) {
				t.Fatal("unrelated file was clobbered")
			}

			if img.Size() != ImageSize512K {
				t.Fatalf("image size changed to %d", img.Size())
			}
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	buf := blank()

	off := putBootcode(buf, nil)
	off = putFile(buf, off, "bootconf.txt", bytes.Repeat([]byte{0xaa}, 64))
	putFile(buf, off, "pubkey.bin", []byte("key"))

	img, err := Parse(buf)

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	before := append([]byte{}, img.Bytes()...)

	for _, test := range []struct {
		name    string
		file    string
		payload []byte
	}{
		{"oversized payload", "bootconf.txt", make([]byte, MaxFileSize+1)},
		{"absent file", "nosuch.txt", []byte("x")},
		{"insufficient space", "bootconf.txt", make([]byte, 1024)},
	} {
		t.Run(test.name, func(t *testing.T) {
			if err := img.UpdateFile(test.file, test.payload); err == nil {
				t.Fatal("UpdateFile succeeded")
			}

			// a failed update never partially applies
			if !bytes.Equal(img.Bytes(), before) {
				t.Fatal("image mutated by failed update")
			}
		})
	}
}

// Replacing a 100-byte entry followed by a 50-byte padding section with a
// 120-byte payload must shrink the padding accordingly while keeping every
// later section at its original offset.
func TestUpdateShrinksPadding(t *testing.T) {
	buf := blank()

	off := putBootcode(buf, nil)
	confOff := off
	off = putFile(buf, off, "bootconf.txt", bytes.Repeat([]byte{0xaa}, 100))
	off = putPad(buf, off, 50)
	keyOff := off
	putFile(buf, off, "pubkey.bin", []byte("key"))

	img, err := Parse(buf)

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	payload := bytes.Repeat([]byte{0xbb}, 120)

	if err = img.UpdateFile("bootconf.txt", payload); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}

	sections := img.Sections()

	if len(sections) != 4 {
		t.Fatalf("got %d sections, want 4", len(sections))
	}

	if sections[1].Offset != confOff || sections[1].Length != FilenameLen+120 {
		t.Fatalf("unexpected file section %+v", sections[1])
	}

	wantPadOff := align(confOff + fileHdrLen + 120)
	wantPadLen := keyOff - wantPadOff - headerLen

	if sections[2].Tag != TagPadding || sections[2].Offset != wantPadOff || sections[2].Length != wantPadLen {
		t.Fatalf("unexpected padding section %+v, want offset 0x%x length %d", sections[2], wantPadOff, wantPadLen)
	}

	if sections[3].Offset != keyOff {
		t.Fatalf("later section moved from 0x%x to 0x%x", keyOff, sections[3].Offset)
	}

	key, err := img.GetFile("pubkey.bin")

	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}

	if !bytes.Equal(key, []byte("key")) {
		t.Fatal("later section content changed")
	}

	if img.Size() != ImageSize512K {
		t.Fatalf("image size changed to %d", img.Size())
	}
}

// Parsing an image, extracting every modifiable file and re-updating each
// with its own bytes must reproduce the original buffer byte-for-byte.
func TestUpdateIdempotence(t *testing.T) {
	bootcode := bytes.Repeat([]byte{0xb0}, 4096)

	buf := testImage(t, bootcode,
		testFile{"bootconf.txt", []byte("BOOT_ORDER=0xf41\nBOOT_UART=1\n")},
		testFile{"pubkey.bin", bytes.Repeat([]byte{0x42}, 260)},
		testFile{"cacert.der", bytes.Repeat([]byte{0x24}, 101)},
	)

	img, err := Parse(buf)

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	boot, err := img.Bootcode()

	if err != nil {
		t.Fatalf("Bootcode: %v", err)
	}

	if err = img.UpdateBootcode(boot); err != nil {
		t.Fatalf("UpdateBootcode: %v", err)
	}

	for _, name := range []string{"bootconf.txt", "pubkey.bin", "cacert.der"} {
		data, err := img.GetFile(name)

		if err != nil {
			t.Fatalf("GetFile(%q): %v", name, err)
		}

		if err = img.UpdateFile(name, data); err != nil {
			t.Fatalf("UpdateFile(%q): %v", name, err)
		}
	}

	if !bytes.Equal(img.Bytes(), buf) {
		t.Fatal("round trip did not reproduce the original image")
	}
}

func TestUpdateBootcode(t *testing.T) {
	img, err := Parse(testImage(t, bytes.Repeat([]byte{0xb0}, 1024),
		testFile{"bootconf.txt", []byte("a=1\n")},
	))

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	payload := bytes.Repeat([]byte{0xbc}, 80*1024)

	if err = img.UpdateBootcode(payload); err != nil {
		t.Fatalf("UpdateBootcode: %v", err)
	}

	got, err := img.Bootcode()

	if err != nil {
		t.Fatalf("Bootcode: %v", err)
	}

	if !bytes.Equal(got[:len(payload)], payload) {
		t.Fatal("bootcode payload mismatch")
	}

	// region length is preserved, later sections never move
	if len(got) != testBootRegion-headerLen {
		t.Fatalf("bootcode region changed to %d bytes", len(got))
	}

	conf, err := img.GetFile("bootconf.txt")

	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}

	if !bytes.Equal(conf, []byte("a=1\n")) {
		t.Fatal("config file clobbered by bootcode update")
	}

	// oversized payload is rejected
	if err = img.UpdateBootcode(make([]byte, testBootRegion)); err == nil {
		t.Fatal("UpdateBootcode accepted payload larger than the region")
	}
}

func TestUpdateBootcodeRegionTooSmall(t *testing.T) {
	buf := blank()

	// bootcode region of 16 KiB, below the loader minimum
	region := 16 * 1024

	binary.BigEndian.PutUint32(buf[0:], magic)
	binary.BigEndian.PutUint32(buf[4:], uint32(region-headerLen))
	putFile(buf, region, "bootconf.txt", []byte("a=1\n"))

	img, err := Parse(buf)

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err = img.UpdateBootcode([]byte("boot")); err == nil {
		t.Fatal("UpdateBootcode accepted undersized region")
	}
}

func TestUpdateBootcodeNoSuccessor(t *testing.T) {
	buf := blank()
	putBootcode(buf, []byte("boot"))

	img, err := Parse(buf)

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err = img.UpdateBootcode([]byte("boot")); err == nil {
		t.Fatal("UpdateBootcode succeeded without a successor section")
	}
}
