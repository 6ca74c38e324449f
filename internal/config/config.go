// getuid
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of getuid.
//
// getuid is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// getuid is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with getuid; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads the DESFire key table.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/getuid"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk key table.
type Config struct {
	Keys []KeyConfig `yaml:"keys"`
}

// KeyConfig is one credential. Exactly one of Key and KeyFile is set.
type KeyConfig struct {
	AID     *uint32 `yaml:"aid"`
	KeyNo   *int    `yaml:"key_no"`
	Key     string  `yaml:"key,omitempty"`
	KeyFile string  `yaml:"key_file,omitempty"`
}

// Load reads and validates the key table at path. Relative key files are
// resolved against the directory of path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a key table without validating it.
func Parse(content []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// Validate checks every entry for required fields.
func (c *Config) Validate() error {
	for i, k := range c.Keys {
		field := fmt.Sprintf("config.keys[%d]", i)
		if k.AID == nil {
			return fmt.Errorf("%s.aid is required", field)
		}
		if *k.AID > getuid.MaxApplicationID {
			return fmt.Errorf("%s.aid %#x exceeds 24 bits", field, *k.AID)
		}
		if k.KeyNo == nil {
			return fmt.Errorf("%s.key_no is required", field)
		}
		if *k.KeyNo < 0 || *k.KeyNo > getuid.MaxKeySlot {
			return fmt.Errorf("%s.key_no must be between 0 and %d", field, getuid.MaxKeySlot)
		}

		hasKey := strings.TrimSpace(k.Key) != ""
		hasFile := strings.TrimSpace(k.KeyFile) != ""
		switch {
		case hasKey && hasFile:
			return fmt.Errorf("%s: key and key_file are mutually exclusive", field)
		case !hasKey && !hasFile:
			return fmt.Errorf("%s: one of key or key_file is required", field)
		case hasFile:
			if err := validateReadableFile(k.KeyFile, field+".key_file"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Credentials builds the credential table, reading key files as needed.
// A malformed entry is reported as a *getuid.CredentialError.
func (c *Config) Credentials() (*getuid.CredentialTable, error) {
	creds := make([]getuid.Credential, 0, len(c.Keys))
	for i, k := range c.Keys {
		cred, err := k.credential()
		if err != nil {
			var aid uint32
			if k.AID != nil {
				aid = *k.AID
			}
			return nil, &getuid.CredentialError{Index: i, AID: aid, Err: err}
		}
		creds = append(creds, cred)
	}
	return getuid.NewCredentialTable(creds...)
}

func (k KeyConfig) credential() (getuid.Credential, error) {
	if k.AID == nil || k.KeyNo == nil {
		return getuid.Credential{}, fmt.Errorf("%w: aid and key_no are required", getuid.ErrInvalidCredential)
	}
	if *k.KeyNo < 0 || *k.KeyNo > getuid.MaxKeySlot {
		return getuid.Credential{}, fmt.Errorf("%w: key slot %d out of range", getuid.ErrInvalidCredential, *k.KeyNo)
	}

	material := k.Key
	if strings.TrimSpace(k.KeyFile) != "" {
		content, err := os.ReadFile(k.KeyFile)
		if err != nil {
			return getuid.Credential{}, fmt.Errorf("read key file: %w", err)
		}
		material = string(content)
	}

	key, err := getuid.ParseKey(material)
	if err != nil {
		return getuid.Credential{}, err
	}
	return getuid.NewCredential(*k.AID, byte(*k.KeyNo), key)
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	for i := range c.Keys {
		c.Keys[i].KeyFile = resolvePath(configDir, c.Keys[i].KeyFile)
	}
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
