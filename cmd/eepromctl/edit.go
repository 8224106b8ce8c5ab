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

package main

import (
	"os"
	"os/exec"

	"github.com/firmwarekit/eeprom-tools/eeprom"
)

// editConfig round-trips the stored configuration through the operator's
// editor and applies the result in place. The temporary file is removed on
// every exit path.
func editConfig(img *eeprom.Image) error {
	cur, err := img.GetFile(configFile)

	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "bootconf-*.txt")

	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(cur); err != nil {
		tmp.Close()
		return err
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	editor := os.Getenv("EDITOR")

	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, tmp.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Run(); err != nil {
		return err
	}

	buf, err := os.ReadFile(tmp.Name())

	if err != nil {
		return err
	}

	return img.UpdateFile(configFile, buf)
}
