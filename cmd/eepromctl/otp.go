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
	"encoding/hex"
	"fmt"
	"os"

	"github.com/firmwarekit/eeprom-tools/internal/config"
	"github.com/firmwarekit/eeprom-tools/otp"
)

func otpOp(cfg *config.Config) error {
	client := &otp.Client{Path: cfg.MailboxCmd}

	if conf.readOTP {
		key, err := client.ReadKey()

		if err != nil {
			return err
		}

		fmt.Println(hex.EncodeToString(key))

		return nil
	}

	key, err := os.ReadFile(conf.writeOTP)

	if err != nil {
		return err
	}

	if len(key) != otp.KeyLen {
		return fmt.Errorf("key file is %d bytes, expected %d", len(key), otp.KeyLen)
	}

	if !confirm("program OTP customer key, this is a one-time irreversible operation") {
		return nil
	}

	return client.WriteKey(key)
}
