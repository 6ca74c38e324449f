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

package getuid

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/getuid/internal/retry"
)

// LinkConfig contains configuration options for the reader link.
type LinkConfig struct {
	// Sleep waits between reset attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// Modulations are the profiles polled for.
	Modulations []Modulation
	// ResetDelay is the pause before every reopen attempt during a reset.
	ResetDelay time.Duration
	// PollCount is the number of polls per modulation in one attempt.
	PollCount byte
	// PollPeriod is the poll period in units of 150ms.
	PollPeriod byte
}

// DefaultLinkConfig returns the default link configuration.
func DefaultLinkConfig() *LinkConfig {
	mods := make([]Modulation, len(DefaultModulations))
	copy(mods, DefaultModulations)
	return &LinkConfig{
		Modulations: mods,
		PollCount:   DefaultPollCount,
		PollPeriod:  DefaultPollPeriod,
		ResetDelay:  50 * time.Millisecond,
	}
}

// Validate checks if the configuration is valid.
func (c *LinkConfig) Validate() error {
	if len(c.Modulations) == 0 {
		return errors.New("at least one modulation is required")
	}
	if c.PollPeriod < 1 || c.PollPeriod > 15 {
		return fmt.Errorf("poll period %d out of range 1-15", c.PollPeriod)
	}
	if c.PollCount == 0 {
		return errors.New("poll count must be positive")
	}
	if c.ResetDelay <= 0 {
		return errors.New("reset delay must be positive")
	}
	return nil
}

// Link owns the single open reader handle.
//
// Thread Safety: Link is NOT thread-safe. It belongs to the goroutine running
// the request cycle.
type Link struct {
	driver Driver
	device Device
	config *LinkConfig
	path   string
	resets int
}

// OpenLink opens and configures the reader at path. Failure here is fatal to
// the caller: no retry is attempted.
func OpenLink(driver Driver, path string, opts ...Option) (*Link, error) {
	if driver == nil {
		return nil, errors.New("driver cannot be nil")
	}

	link := &Link{
		driver: driver,
		path:   path,
		config: DefaultLinkConfig(),
	}
	for _, opt := range opts {
		if err := opt(link); err != nil {
			return nil, fmt.Errorf("failed to apply link option: %w", err)
		}
	}
	if err := link.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid link config: %w", err)
	}

	device, err := link.setup()
	if err != nil {
		return nil, fmt.Errorf("could not setup device '%s': %w", path, err)
	}
	link.device = device
	return link, nil
}

// setup opens the device and configures it for ISO14443A/DESFire access.
// Property failures are traced but do not fail the setup; some readers
// reject properties they handle implicitly.
func (l *Link) setup() (Device, error) {
	debugf("open(%s)", l.path)
	device, err := l.driver.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if device == nil {
		return nil, NewDeviceError("open", l.path, 0, ErrNoDevice)
	}

	debugln("initiator init")
	if err := device.InitiatorInit(); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("initiator init: %w", err)
	}

	steps := []struct {
		property Property
		value    bool
	}{
		// Drop the field so a previous session does not linger
		{PropertyActivateField, false},
		{PropertyHandleCRC, true},
		{PropertyHandleParity, true},
		{PropertyAutoISO14443_4, true},
		// Field back on last so cards power up against a configured reader
		{PropertyActivateField, true},
	}
	for _, step := range steps {
		debugf("set_property(%s, %t)", step.property, step.value)
		if err := device.SetPropertyBool(step.property, step.value); err != nil {
			debugf("set_property(%s, %t): %v", step.property, step.value, err)
		}
	}

	return device, nil
}

// Reset closes the current handle and reopens the reader until it succeeds.
// It blocks for as long as the reader is missing.
func (l *Link) Reset() {
	if l.device != nil {
		lastErr := l.device.LastError()
		Logger().Warn().Err(lastErr).Str("path", l.path).Msg("resetting reader")
		_ = l.device.Close()
		l.device = nil
	}

	l.sleep(l.config.ResetDelay)
	device, failures := retry.Forever(retry.Config{
		Description: "reset " + l.path,
		Delay:       l.config.ResetDelay,
		Sleep:       l.config.Sleep,
		OnRetry: func(attempt int, err error) {
			debugf("reset %s attempt %d: %v, retrying in %s", l.path, attempt, err, l.config.ResetDelay)
		},
	}, l.setup)

	l.device = device
	l.resets++
	Logger().Info().Str("path", l.path).Int("failed_attempts", failures).Msg("reader reset complete")
}

func (l *Link) sleep(d time.Duration) {
	if l.config.Sleep != nil {
		l.config.Sleep(d)
		return
	}
	time.Sleep(d)
}

// InitiatorInit re-enters initiator mode at the start of a request.
func (l *Link) InitiatorInit() error {
	if l.device == nil {
		return ErrLinkClosed
	}
	if err := l.device.InitiatorInit(); err != nil {
		return fmt.Errorf("initiator init: %w", err)
	}
	return nil
}

// Poll runs one bounded poll for any configured modulation.
func (l *Link) Poll() (bool, error) {
	if l.device == nil {
		return false, ErrLinkClosed
	}
	found, err := l.device.PollTarget(l.config.Modulations, l.config.PollCount, l.config.PollPeriod)
	if err != nil {
		return false, fmt.Errorf("poll target: %w", err)
	}
	return found, nil
}

// Device returns the live handle, or nil after Close.
func (l *Link) Device() Device {
	return l.device
}

// Path returns the connection string of the reader.
func (l *Link) Path() string {
	return l.path
}

// Resets returns how many resets completed.
func (l *Link) Resets() int {
	return l.resets
}

// Config returns the link configuration.
func (l *Link) Config() *LinkConfig {
	return l.config
}

// Close closes the reader handle.
func (l *Link) Close() error {
	if l.device == nil {
		return nil
	}
	err := l.device.Close()
	l.device = nil
	if err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}
