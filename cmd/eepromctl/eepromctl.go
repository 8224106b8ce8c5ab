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

// eepromctl inspects and rewrites bootloader EEPROM images: configuration
// and bootcode updates, section extraction and flash scheduling.
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog"

	"github.com/firmwarekit/eeprom-tools/eeprom"
	"github.com/firmwarekit/eeprom-tools/internal/config"
	"github.com/firmwarekit/eeprom-tools/internal/firmware"
)

// configFile is the modifiable file holding the bootloader configuration.
const configFile = "bootconf.txt"

type Config struct {
	cfgPath string

	image  string
	output string

	get     bool
	live    bool
	update  string
	edit    bool
	boot    string
	extract string
	flash   bool

	readOTP  bool
	writeOTP string
}

var conf *Config

func init() {
	conf = &Config{}

	flag.StringVar(&conf.cfgPath, "C", config.DefaultPath, "tool configuration file")
	flag.StringVar(&conf.image, "i", "", "EEPROM image (default: latest release image)")
	flag.StringVar(&conf.output, "o", "", "output image path (default: rewrite input)")
	flag.BoolVar(&conf.get, "g", false, "print the configuration stored in the image")
	flag.BoolVar(&conf.live, "l", false, "print the running bootloader configuration")
	flag.StringVar(&conf.update, "u", "", "update the stored configuration from file")
	flag.BoolVar(&conf.edit, "e", false, "edit the stored configuration in $EDITOR")
	flag.StringVar(&conf.boot, "b", "", "replace the bootcode section from file")
	flag.StringVar(&conf.extract, "x", "", "extract all sections into directory")
	flag.BoolVar(&conf.flash, "f", false, "schedule an EEPROM flash of the output image")
	flag.BoolVar(&conf.readOTP, "k", false, "read the OTP customer key")
	flag.StringVar(&conf.writeOTP, "K", "", "program the OTP customer key from file (irreversible)")
}

func confirm(msg string) bool {
	var res string

	fmt.Printf("%s (y/n): ", msg)
	fmt.Scanln(&res)

	return res == "y"
}

func main() {
	flag.Parse()

	if flag.NFlag() == 0 {
		flag.PrintDefaults()
		return
	}

	cfg, err := config.Load(conf.cfgPath)

	if err != nil {
		klog.Exitf("could not load configuration, %v", err)
	}

	switch {
	case conf.live:
		text, err := firmware.CurrentConfig(cfg.ConfigCmd)

		if err != nil {
			klog.Exit(err)
		}

		fmt.Print(text)
	case conf.readOTP, len(conf.writeOTP) > 0:
		if err = otpOp(cfg); err != nil {
			klog.Exit(err)
		}
	default:
		if err = imageOp(cfg); err != nil {
			klog.Exit(err)
		}
	}
}

func imageOp(cfg *config.Config) error {
	path := conf.image

	if path == "" {
		latest, err := firmware.Latest(cfg.FirmwareDir)

		if err != nil {
			return err
		}

		klog.Infof("using latest release image %s", latest)
		path = latest
	}

	img, err := eeprom.Load(path)

	if err != nil {
		return err
	}

	modified := false

	switch {
	case conf.get:
		buf, err := img.GetFile(configFile)

		if err != nil {
			return err
		}

		fmt.Print(string(buf))
	case len(conf.extract) > 0:
		paths, err := img.ExtractAll(conf.extract)

		if err != nil {
			return err
		}

		for _, p := range paths {
			klog.Infof("extracted %s", p)
		}
	case len(conf.update) > 0:
		buf, err := os.ReadFile(conf.update)

		if err != nil {
			return err
		}

		if err = img.UpdateFile(configFile, buf); err != nil {
			return err
		}

		modified = true
	case conf.edit:
		if err = editConfig(img); err != nil {
			return err
		}

		modified = true
	case len(conf.boot) > 0:
		buf, err := os.ReadFile(conf.boot)

		if err != nil {
			return err
		}

		if err = img.UpdateBootcode(buf); err != nil {
			return err
		}

		modified = true
	}

	out := conf.output

	if out == "" {
		out = path
	}

	if modified {
		if err = img.Save(out); err != nil {
			return err
		}

		klog.Infof("wrote %s", out)
	}

	if conf.flash {
		if !confirm(fmt.Sprintf("schedule EEPROM flash of %s, this cannot be undone once applied", out)) {
			return nil
		}

		return firmware.Schedule(out, cfg.BootDir, cfg.UpdateCmd)
	}

	return nil
}
