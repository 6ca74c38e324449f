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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ZaparooProject/getuid"
	"github.com/ZaparooProject/getuid/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/getuid/detection/i2c"
	_ "github.com/ZaparooProject/getuid/detection/uart"
	"github.com/ZaparooProject/getuid/internal/config"
	"github.com/ZaparooProject/getuid/libnfc"
	"github.com/ZaparooProject/getuid/polling"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type flags struct {
	devicePath *string
	keysPath   *string
	logFormat  *string
	ignore     *string
	pollDelay  *time.Duration
	resetDelay *time.Duration
	debug      *bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("getuid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := &flags{
		devicePath: fs.String("device", "",
			"Reader connection string (e.g., pn532_uart:/dev/ttyUSB0). Leave empty for the first reader found."),
		keysPath:   fs.String("keys", "", "YAML key table for DESFire cards with random UID"),
		logFormat:  fs.String("log-format", "console", "Log format: console or json"),
		ignore:     fs.String("ignore", "", "Comma separated device paths to skip during discovery"),
		pollDelay:  fs.Duration("poll-delay", 50*time.Millisecond, "Pause between poll attempts"),
		resetDelay: fs.Duration("reset-delay", 50*time.Millisecond, "Pause between reader reset attempts"),
		debug:      fs.Bool("debug", false, "Enable debug output"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *flags, stderr io.Writer) {
	var out io.Writer = stderr
	if *cfg.logFormat != "json" {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if *cfg.debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	getuid.SetLogger(logger)
	getuid.SetDebugEnabled(*cfg.debug)
}

// loadCredentials builds the key table. No file means an empty table.
func loadCredentials(path string) (*getuid.CredentialTable, error) {
	if path == "" {
		return getuid.NewCredentialTable()
	}
	keys, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load key table: %w", err)
	}
	table, err := keys.Credentials()
	if err != nil {
		return nil, fmt.Errorf("could not initialize key: %w", err)
	}
	return table, nil
}

// deps are the hardware collaborators, swapped out in tests.
type deps struct {
	driver getuid.Driver
	cards  getuid.CardProtocol
	detect func(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error)
}

func libnfcDeps() deps {
	return deps{
		driver: libnfc.NewDriver(),
		cards:  libnfc.NewCardProtocol(),
		detect: detection.DetectAll,
	}
}

// openLink opens the configured reader, the first reader the driver lists,
// or the first discovered candidate that opens.
func openLink(cfg *flags, d deps, opts ...getuid.Option) (*getuid.Link, error) {
	if *cfg.devicePath != "" {
		return getuid.OpenLink(d.driver, *cfg.devicePath, opts...)
	}

	paths, err := d.driver.ListDevices()
	if err != nil {
		log.Debug().Err(err).Msg("list devices")
	}
	if len(paths) > 0 {
		return getuid.OpenLink(d.driver, paths[0], opts...)
	}

	if d.detect == nil {
		return nil, getuid.ErrNoDevice
	}
	detectOpts := detection.DefaultOptions()
	detectOpts.IgnorePaths = splitList(*cfg.ignore)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	candidates, err := d.detect(ctx, &detectOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", getuid.ErrNoDevice, err)
	}

	var errs []error
	for _, candidate := range candidates {
		log.Debug().Str("connstring", candidate.Connstring()).Str("name", candidate.Name).Msg("trying candidate")
		link, err := getuid.OpenLink(d.driver, candidate.Connstring(), opts...)
		if err == nil {
			return link, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", getuid.ErrNoDevice, errors.Join(errs...))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// run starts the daemon and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, d deps) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	setupLogging(cfg, stderr)

	credentials, err := loadCredentials(*cfg.keysPath)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 1
	}
	log.Debug().Int("credentials", credentials.Len()).Msg("keys loaded")

	link, err := openLink(cfg, d, getuid.WithResetDelay(*cfg.resetDelay))
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 1
	}
	log.Info().Str("device", link.Path()).Msg("reader ready")

	sessionConfig := polling.DefaultConfig()
	sessionConfig.PollDelay = *cfg.pollDelay
	sessionConfig.TransientDelay = *cfg.pollDelay

	session, err := polling.NewSession(link, d.cards, getuid.NewResolver(credentials), sessionConfig)
	if err != nil {
		_ = link.Close()
		log.Error().Err(err).Msg("startup failed")
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("close reader")
		}
	}()

	if err := session.Serve(stdin, stdout); err != nil {
		log.Error().Err(err).Msg("client stream failed")
		return 1
	}
	return 0
}

func main() {
	ignoreBrokenPipe()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, libnfcDeps()))
}
