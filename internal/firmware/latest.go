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

// Package firmware drives the platform collaborators around the EEPROM
// image: release selection, flash scheduling and configuration readback.
package firmware

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/coreos/go-semver/semver"
)

// Release images are published as eeprom-<version>.bin.
var imageRE = regexp.MustCompile(`^eeprom-(\d+\.\d+\.\d+)\.bin$`)

// Latest returns the path of the newest release image in dir, ordered by the
// semantic version embedded in the filename.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)

	if err != nil {
		return "", err
	}

	var (
		best *semver.Version
		path string
	)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		m := imageRE.FindStringSubmatch(e.Name())

		if m == nil {
			continue
		}

		v, err := semver.NewVersion(m[1])

		if err != nil {
			continue
		}

		if best == nil || best.LessThan(*v) {
			best = v
			path = filepath.Join(dir, e.Name())
		}
	}

	if path == "" {
		return "", fmt.Errorf("no firmware images in %s", dir)
	}

	return path, nil
}
