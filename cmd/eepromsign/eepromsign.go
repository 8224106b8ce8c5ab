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

// eepromsign produces cryptographically signed second-stage boot images for
// ROM-level secure boot verification.
package main

import (
	"bytes"
	"crypto/rsa"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"k8s.io/klog"

	"github.com/firmwarekit/eeprom-tools/simage"
)

type Config struct {
	input  string
	output string
	b64    bool

	gen      string
	keyIndex int
	version  int

	keyFile    string
	pubFile    string
	signerCmd  string
	digestFile string
}

var conf *Config

func init() {
	conf = &Config{}

	flag.StringVar(&conf.input, "i", "", "payload file (default: base64 on standard input)")
	flag.StringVar(&conf.output, "o", "", "output file (default: standard output)")
	flag.BoolVar(&conf.b64, "z", false, "base64-encode standard output")
	flag.StringVar(&conf.gen, "g", "gen2", "chip generation (gen1, gen2)")
	flag.IntVar(&conf.keyIndex, "x", 0, "key index (0-4, or 16 for the customer key)")
	flag.IntVar(&conf.version, "v", 0, "rollback-prevention version (0-32, gen2 only)")
	flag.StringVar(&conf.keyFile, "k", "", "PEM RSA private key")
	flag.StringVar(&conf.pubFile, "p", "", "PEM RSA public key (required with -s for gen2)")
	flag.StringVar(&conf.signerCmd, "s", "", "external signing command")
	flag.StringVar(&conf.digestFile, "H", "", "integrity digest key file (gen1 only)")
}

func main() {
	flag.Parse()

	if flag.NFlag() == 0 {
		flag.PrintDefaults()
		return
	}

	if err := run(); err != nil {
		klog.Exit(err)
	}
}

func run() error {
	payload, err := readPayload()

	if err != nil {
		return err
	}

	signer, pub, err := buildSigner()

	if err != nil {
		return err
	}

	var out bytes.Buffer

	switch conf.gen {
	case "gen1":
		if conf.digestFile == "" {
			return fmt.Errorf("gen1 images require a digest key (-H)")
		}

		digestKey, err := os.ReadFile(conf.digestFile)

		if err != nil {
			return err
		}

		err = simage.BuildGen1(&out, payload, conf.keyIndex, signer, digestKey)

		if err != nil {
			return err
		}
	case "gen2":
		if pub == nil {
			return fmt.Errorf("gen2 images embed the public key, pass -k or -p")
		}

		err = simage.BuildGen2(&out, payload, conf.keyIndex, conf.version, signer, pub)

		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown chip generation %q", conf.gen)
	}

	return writeImage(out.Bytes())
}

func readPayload() ([]byte, error) {
	if conf.input != "" {
		return os.ReadFile(conf.input)
	}

	buf, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, os.Stdin))

	if err != nil {
		return nil, fmt.Errorf("could not decode standard input: %v", err)
	}

	return buf, nil
}

// buildSigner selects the signing backend: a local PEM key, or an external
// command for keys held elsewhere. The public key half is returned when
// available, gen2 images embed it.
func buildSigner() (simage.Signer, *rsa.PublicKey, error) {
	if conf.signerCmd != "" {
		fields := strings.Fields(conf.signerCmd)

		signer := &simage.CommandSigner{
			Path: fields[0],
			Args: fields[1:],
		}

		var pub *rsa.PublicKey

		if conf.pubFile != "" {
			buf, err := os.ReadFile(conf.pubFile)

			if err != nil {
				return nil, nil, err
			}

			if pub, err = simage.ParsePublicKey(buf); err != nil {
				return nil, nil, err
			}
		}

		return signer, pub, nil
	}

	if conf.keyFile == "" {
		return nil, nil, fmt.Errorf("no signing key, pass -k or -s")
	}

	buf, err := os.ReadFile(conf.keyFile)

	if err != nil {
		return nil, nil, err
	}

	signer, err := simage.NewLocalSigner(buf)

	if err != nil {
		return nil, nil, err
	}

	return signer, signer.Public(), nil
}

func writeImage(buf []byte) error {
	if conf.output != "" {
		return os.WriteFile(conf.output, buf, 0o644)
	}

	if conf.b64 {
		enc := base64.NewEncoder(base64.StdEncoding, os.Stdout)

		if _, err := enc.Write(buf); err != nil {
			return err
		}

		if err := enc.Close(); err != nil {
			return err
		}

		fmt.Println()

		return nil
	}

	_, err := os.Stdout.Write(buf)

	return err
}
