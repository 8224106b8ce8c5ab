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
	"fmt"
	"os"
	"path/filepath"
)

// BootcodeFile is the filename used when the bootcode section is extracted.
const BootcodeFile = "bootcode.bin"

// GetFile returns the stored payload of the named file, excluding the header
// and filename field.
func (img *Image) GetFile(name string) ([]byte, error) {
	loc := img.locate(name)

	if loc.offset < 0 {
		return nil, fmt.Errorf("no file %q in image", name)
	}

	start := loc.offset + fileHdrLen
	end := loc.offset + headerLen + loc.length

	return append([]byte{}, img.buf[start:end]...), nil
}

// Bootcode returns the bootcode region, excluding only its 8-byte header.
func (img *Image) Bootcode() ([]byte, error) {
	loc := img.locate("")

	if loc.offset < 0 {
		return nil, fmt.Errorf("bootcode section not found")
	}

	start := loc.offset + headerLen
	end := start + loc.length

	return append([]byte{}, img.buf[start:end]...), nil
}

// ExtractAll writes the bootcode section and every named file out as
// individual files under dir, returning the written paths.
func (img *Image) ExtractAll(dir string) ([]string, error) {
	var paths []string

	bootcode, err := img.Bootcode()

	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, BootcodeFile)

	if err = os.WriteFile(path, bootcode, 0o644); err != nil {
		return nil, err
	}

	paths = append(paths, path)

	for _, s := range img.sections {
		if s.Tag != TagNamedFile {
			continue
		}

		buf, err := img.GetFile(s.Name)

		if err != nil {
			return nil, err
		}

		path = filepath.Join(dir, s.Name)

		if err = os.WriteFile(path, buf, 0o644); err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}
