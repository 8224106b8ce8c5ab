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
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"k8s.io/klog"
)

// StagedImage is the filename the platform updater picks up from the boot
// directory.
const StagedImage = "eeprom.upd"

// Schedule stages the image in bootDir and invokes the platform update
// command, which applies it on the next reboot. The staged copy is read back
// and compared before the update is scheduled, a mismatch is fatal.
func Schedule(image string, bootDir string, updateCmd string) error {
	src, err := os.Open(image)

	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()

	if err != nil {
		return err
	}

	staged := filepath.Join(bootDir, StagedImage)

	dst, err := os.Create(staged)

	if err != nil {
		return err
	}

	bar := pb.Full.Start64(info.Size())

	_, err = io.Copy(dst, bar.NewProxyReader(src))
	bar.Finish()

	if err != nil {
		dst.Close()
		return fmt.Errorf("could not stage %s: %v", image, err)
	}

	if err = dst.Close(); err != nil {
		return err
	}

	if err = verifyStaged(image, staged); err != nil {
		return err
	}

	klog.Infof("staged %s (%d bytes), scheduling update", staged, info.Size())

	out, err := exec.Command(updateCmd, "-s", staged).CombinedOutput()

	if err != nil {
		return fmt.Errorf("update command failed: %v: %s", err, bytes.TrimSpace(out))
	}

	klog.Infof("update scheduled, apply with a reboot")

	return nil
}

func verifyStaged(image string, staged string) error {
	want, err := os.ReadFile(image)

	if err != nil {
		return err
	}

	got, err := os.ReadFile(staged)

	if err != nil {
		return err
	}

	if !bytes.Equal(want, got) {
		return errors.New("staged image readback mismatch")
	}

	return nil
}
