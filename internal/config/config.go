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

// Package config holds the tool configuration, naming the platform commands
// and directories the EEPROM tools collaborate with.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is consulted when no configuration file is given. A missing
// file at the default path is not an error, the defaults below apply.
const DefaultPath = "/etc/eeprom-tools.yaml"

type Config struct {
	// FirmwareDir holds released EEPROM images.
	FirmwareDir string `yaml:"firmware_dir"`
	// BootDir is the staging directory scanned by the updater at boot.
	BootDir string `yaml:"boot_dir"`
	// UpdateCmd schedules an EEPROM flash of a staged image.
	UpdateCmd string `yaml:"update_cmd"`
	// ConfigCmd reads the running bootloader configuration.
	ConfigCmd string `yaml:"config_cmd"`
	// MailboxCmd accesses the OTP key region.
	MailboxCmd string `yaml:"mailbox_cmd"`
}

func defaults() *Config {
	return &Config{
		FirmwareDir: "/lib/firmware/eeprom",
		BootDir:     "/boot",
		UpdateCmd:   "eeprom-update",
		ConfigCmd:   "bootcfg",
		MailboxCmd:  "otpbox",
	}
}

// Load reads the configuration at path, filling in defaults for unset
// fields.
func Load(path string) (*Config, error) {
	cfg := defaults()

	buf, err := os.ReadFile(path)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}

		return nil, err
	}

	if err = yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %v", path, err)
	}

	return cfg, nil
}
