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
	"encoding/binary"
	"errors"
	"fmt"
)

// location is the result of a modifiable-file lookup.
type location struct {
	// offset of the section header, -1 when the target is absent
	offset int
	// declared section length
	length int
	// last is set when the target is the final table entry
	last bool
	// next is the offset of the next non-padding section, or the start of
	// the reserved trailer when no successor exists
	next    int
	hasNext bool
}

// locate finds the named file, or the bootcode section when name is empty.
// The bootcode section is defined to be the very first section, no filename
// match is performed for it.
func (img *Image) locate(name string) location {
	loc := location{
		offset: -1,
		next:   len(img.buf) - EraseAlignSize,
	}

	idx := -1

	if name == "" {
		if len(img.sections) > 0 {
			idx = 0
		}
	} else {
		for i, s := range img.sections {
			if s.Tag == TagNamedFile && s.Name == name {
				idx = i
				break
			}
		}
	}

	if idx < 0 {
		return loc
	}

	s := img.sections[idx]

	loc.offset = s.Offset
	loc.length = s.Length
	loc.last = idx == len(img.sections)-1

	for _, n := range img.sections[idx+1:] {
		if n.Tag != TagPadding {
			loc.next = n.Offset
			loc.hasNext = true
			break
		}
	}

	return loc
}

// UpdateBootcode replaces the second-stage bootcode held in the first
// section. The bootcode region always extends up to the offset of the next
// section, its stored length covers the whole region rather than the payload
// alone, space freed by a smaller payload is rewritten with the fill byte.
func (img *Image) UpdateBootcode(payload []byte) error {
	loc := img.locate("")

	if loc.offset < 0 {
		return errors.New("bootcode section not found")
	}

	if !loc.hasNext {
		return errors.New("bootcode section has no successor, cannot determine region size")
	}

	region := loc.next - loc.offset - headerLen

	if region < MinBootcodeRegion {
		return fmt.Errorf("bootcode region is %d bytes, bootloader requires at least %d", region, MinBootcodeRegion)
	}

	if len(payload) > region {
		return fmt.Errorf("bootcode payload is %d bytes, region holds %d", len(payload), region)
	}

	binary.BigEndian.PutUint32(img.buf[loc.offset+4:], uint32(region))
	copy(img.buf[loc.offset+headerLen:], payload)
	fill(img.buf[loc.offset+headerLen+len(payload) : loc.next])

	return img.reparse()
}

// UpdateFile replaces the payload of the named file in place. All bytes
// outside the target's span up to the next non-padding section are preserved
// or re-padded, subsequent section offsets are never shifted. The stored
// length field counts the filename field as well as the payload.
//
// All preconditions are checked before the first byte is written, a failed
// update never partially applies.
func (img *Image) UpdateFile(name string, payload []byte) error {
	if len(payload) > MaxFileSize {
		return fmt.Errorf("file %q payload is %d bytes, limit is %d", name, len(payload), MaxFileSize)
	}

	loc := img.locate(name)

	if loc.offset < 0 {
		return fmt.Errorf("no file %q in image", name)
	}

	updateLen := fileHdrLen + len(payload)

	if loc.offset+updateLen > loc.next {
		return fmt.Errorf("file %q needs %d bytes, %d available before next section", name, updateLen, loc.next-loc.offset)
	}

	binary.BigEndian.PutUint32(img.buf[loc.offset+4:], uint32(FilenameLen+len(payload)))
	copy(img.buf[loc.offset+fileHdrLen:], payload)

	end := loc.offset + updateLen
	aligned := align(end)
	fill(img.buf[end:aligned])

	gap := loc.next - aligned

	switch {
	case loc.last:
		// The last entry is followed by unused space only, rewrite it
		// with the fill byte so the next parse hits the sentinel.
		fill(img.buf[aligned:loc.next])
	case gap > headerLen:
		binary.BigEndian.PutUint32(img.buf[aligned:], padMagic)
		binary.BigEndian.PutUint32(img.buf[aligned+4:], uint32(gap-headerLen))
		fill(img.buf[aligned+headerLen : loc.next])
	case gap > 0:
		// Too small for a padding header, leave raw fill bytes.
		fill(img.buf[aligned:loc.next])
	}

	return img.reparse()
}
