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

package firmware

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
)

// CurrentConfig returns the configuration text of the running bootloader, as
// reported by the platform readback command.
func CurrentConfig(configCmd string) (string, error) {
	out, err := exec.Command(configCmd, "bootloader_config").Output()

	if err != nil {
		var exitErr *exec.ExitError

		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("config readback failed: %v: %s", err, bytes.TrimSpace(exitErr.Stderr))
		}

		return "", fmt.Errorf("config readback failed: %v", err)
	}

	return string(out), nil
}
