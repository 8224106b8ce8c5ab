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

// Package eeprom parses and rewrites bootloader EEPROM images.
//
// An image is a fixed-size byte buffer holding a sequence of sections, each
// introduced by a 4-byte big-endian tag and a 4-byte big-endian length.
// Sections start 8-byte aligned. The first section holds the second-stage
// bootcode; named-file sections carry a fixed-width filename directly after
// the header and hold rewritable data such as the bootloader configuration.
// The final erase block of the image is reserved for the bootloader itself.
package eeprom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

const (
	// ImageSize512K and ImageSize2M are the only valid whole-image sizes.
	ImageSize512K = 512 * 1024
	ImageSize2M   = 2 * 1024 * 1024

	// FilenameLen is the fixed width of the embedded filename field.
	FilenameLen = 12

	// MaxFileSize bounds the payload of any modifiable file.
	MaxFileSize = 24 * 1024

	// EraseAlignSize is the size of the reserved region at the end of the
	// image, which the bootloader may rewrite at runtime.
	EraseAlignSize = 4096

	// MinBootcodeRegion is the smallest bootcode region the bootloader ROM
	// will load from.
	MinBootcodeRegion = 64 * 1024
)

// Section tags, distinguished by magicMask. A tag of all zero or all one
// bits terminates the table.
const (
	magicMask = 0xfffff00f
	magic     = 0x55aaf00f
	fileMagic = 0x55aaf11f
	padMagic  = 0x55aafeef
)

const (
	headerLen  = 8
	fileHdrLen = headerLen + FilenameLen
	fillByte   = 0xff
)

// Tag identifies the class of a section.
type Tag int

const (
	// TagBoundary marks a data region without a filename, such as the
	// bootcode section at the start of the image.
	TagBoundary Tag = iota
	// TagPadding marks unused space left behind by a shrunk file.
	TagPadding
	// TagNamedFile marks a modifiable file with an embedded filename.
	TagNamedFile
)

func (t Tag) String() string {
	switch t {
	case TagBoundary:
		return "boundary"
	case TagPadding:
		return "padding"
	case TagNamedFile:
		return "file"
	}
	panic(fmt.Errorf("unknown section tag %d", int(t)))
}

// Section describes one tagged region of the image.
type Section struct {
	Tag    Tag
	Offset int
	Length int
	// Name is set for TagNamedFile sections only, with trailing fill
	// bytes stripped.
	Name string
}

// Image is a parsed EEPROM image. The buffer is owned by the Image and
// mutated in place by the update operations.
type Image struct {
	buf      []byte
	sections []Section
}

// CorruptionError reports a section tag failing the magic mask check before
// the end-of-table sentinel was found.
type CorruptionError struct {
	Offset int
	Tag    uint32
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted section table: unexpected tag 0x%08x at offset 0x%x", e.Tag, e.Offset)
}

// Parse validates the image size and walks the section table. The buffer is
// copied, the caller's slice is never mutated.
func Parse(buf []byte) (*Image, error) {
	if len(buf) != ImageSize512K && len(buf) != ImageSize2M {
		return nil, fmt.Errorf("invalid image size %d, expected %d or %d", len(buf), ImageSize512K, ImageSize2M)
	}

	img := &Image{
		buf: append([]byte{}, buf...),
	}

	if err := img.reparse(); err != nil {
		return nil, err
	}

	return img, nil
}

// Load reads and parses an image file.
func Load(path string) (*Image, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	return img, nil
}

// reparse rebuilds the section table from the buffer, it is invoked after
// every in-place mutation to keep the table authoritative.
func (img *Image) reparse() error {
	var sections []Section

	off := 0

	for off+headerLen <= len(img.buf) {
		tag := binary.BigEndian.Uint32(img.buf[off:])

		// end-of-table sentinel
		if tag == 0x00000000 || tag == 0xffffffff {
			break
		}

		if tag&magicMask != magic {
			return &CorruptionError{Offset: off, Tag: tag}
		}

		length := int(binary.BigEndian.Uint32(img.buf[off+4:]))

		if off+headerLen+length > len(img.buf) {
			return fmt.Errorf("section at 0x%x overruns image, declared length %d", off, length)
		}

		s := Section{Offset: off, Length: length}

		switch tag {
		case fileMagic:
			if length < FilenameLen {
				return fmt.Errorf("file section at 0x%x too short for filename, declared length %d", off, length)
			}
			s.Tag = TagNamedFile
			s.Name = string(bytes.TrimRight(img.buf[off+headerLen:off+headerLen+FilenameLen], "\x00"))
		case padMagic:
			s.Tag = TagPadding
		default:
			s.Tag = TagBoundary
		}

		sections = append(sections, s)
		off = align(off + headerLen + length)
	}

	img.sections = sections

	return nil
}

// Sections returns the parsed section table in image order.
func (img *Image) Sections() []Section {
	return append([]Section{}, img.sections...)
}

// Bytes returns the backing buffer of the image.
func (img *Image) Bytes() []byte {
	return img.buf
}

// Size returns the total image size.
func (img *Image) Size() int {
	return len(img.buf)
}

// Save writes the image buffer to path.
func (img *Image) Save(path string) error {
	return os.WriteFile(path, img.buf, 0o644)
}

func align(n int) int {
	return (n + 7) &^ 7
}

func fill(b []byte) {
	for i := range b {
		b[i] = fillByte
	}
}
