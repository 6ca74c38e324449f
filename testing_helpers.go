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
	"sync"
)

// PollResult is one scripted outcome of MockDevice.PollTarget.
type PollResult struct {
	Err   error
	Found bool
}

// MockDevice is a scripted Device for tests. Poll results are consumed in
// order; once exhausted every poll times out.
type MockDevice struct {
	lastErr     error
	InitErr     error
	Path        string
	Calls       []string
	PollResults []PollResult
	polls       int
	closes      int
	mu          sync.Mutex
	closed      bool
}

// NewMockDevice creates a mock device with the given poll script.
func NewMockDevice(path string, results ...PollResult) *MockDevice {
	return &MockDevice{Path: path, PollResults: results}
}

func (m *MockDevice) record(call string) {
	m.Calls = append(m.Calls, call)
}

// InitiatorInit records the call and returns InitErr.
func (m *MockDevice) InitiatorInit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("InitiatorInit")
	return m.InitErr
}

// SetPropertyBool records the call.
func (m *MockDevice) SetPropertyBool(property Property, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("SetPropertyBool(%s,%t)", property, value))
	return nil
}

// PollTarget returns the next scripted result.
func (m *MockDevice) PollTarget(_ []Modulation, _, _ byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, NewDeviceError("poll", m.Path, -4, ErrDeviceFailure)
	}
	m.record("PollTarget")
	if m.polls >= len(m.PollResults) {
		m.polls++
		return false, NewDeviceError("poll", m.Path, -6, ErrPollTimeout)
	}
	result := m.PollResults[m.polls]
	m.polls++
	m.lastErr = result.Err
	return result.Found, result.Err
}

// LastError returns the error of the last poll.
func (m *MockDevice) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Connection returns the mock path.
func (m *MockDevice) Connection() string {
	return m.Path
}

// Close marks the device closed.
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closes++
	}
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called since the last open.
func (m *MockDevice) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Closes returns how many times the device was closed.
func (m *MockDevice) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Polls returns how many polls were issued.
func (m *MockDevice) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

func (m *MockDevice) reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}

// MockDriver opens a single MockDevice. OpenErrs are returned by successive
// Open calls before opening succeeds.
type MockDriver struct {
	Device   *MockDevice
	ListErr  error
	Paths    []string
	OpenErrs []error
	opens    int
	mu       sync.Mutex
}

// NewMockDriver creates a driver that lists and opens device.
func NewMockDriver(device *MockDevice) *MockDriver {
	return &MockDriver{Device: device, Paths: []string{device.Path}}
}

// ListDevices returns Paths.
func (m *MockDriver) ListDevices() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]string(nil), m.Paths...), nil
}

// Open returns the next scripted error or the mock device.
func (m *MockDriver) Open(path string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if len(m.OpenErrs) > 0 {
		err := m.OpenErrs[0]
		m.OpenErrs = m.OpenErrs[1:]
		return nil, err
	}
	if m.Device == nil || path != m.Device.Path {
		return nil, NewDeviceError("open", path, -4, ErrNoDevice)
	}
	m.Device.reopen()
	return m.Device, nil
}

// Opens returns how many times Open was called.
func (m *MockDriver) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// MockApplication is a DESFire application on a MockCard.
type MockApplication struct {
	KeySlot byte
	Key     [KeySize]byte
}

// Mock card errors
var (
	errMockNoApplication = errors.New("application not found")
	errMockAuthFailed    = errors.New("authentication error")
	errMockNotAuthed     = errors.New("permission denied")
)

// MockCard is a scripted Card. Protocol calls are recorded in Calls.
type MockCard struct {
	ConnectErr   error
	Applications map[uint32]MockApplication
	NativeUID    string
	BackendUID   string
	CardName     string
	Calls        []string
	CardFamily   CardFamily
	selected     uint32
	hasSelection bool
	authed       bool
}

// NewMockCard creates a card with the given native UID and family.
func NewMockCard(uid string, family CardFamily) *MockCard {
	return &MockCard{
		NativeUID:    uid,
		CardFamily:   family,
		CardName:     family.String(),
		Applications: map[uint32]MockApplication{},
	}
}

// WithApplication adds an application that accepts key in keySlot.
func (m *MockCard) WithApplication(aid uint32, keySlot byte, key [KeySize]byte) *MockCard {
	m.Applications[aid] = MockApplication{KeySlot: keySlot, Key: key}
	return m
}

// UID returns the native UID.
func (m *MockCard) UID() string { return m.NativeUID }

// Name returns the card name.
func (m *MockCard) Name() string { return m.CardName }

// Family returns the card family.
func (m *MockCard) Family() CardFamily { return m.CardFamily }

// Connect records the call and returns ConnectErr.
func (m *MockCard) Connect() error {
	m.Calls = append(m.Calls, "Connect")
	return m.ConnectErr
}

// SelectApplication selects aid if the card has it.
func (m *MockCard) SelectApplication(aid uint32) error {
	m.Calls = append(m.Calls, fmt.Sprintf("SelectApplication(%06x)", aid))
	m.authed = false
	m.hasSelection = false
	if _, ok := m.Applications[aid]; !ok {
		return errMockNoApplication
	}
	m.selected = aid
	m.hasSelection = true
	return nil
}

// Authenticate succeeds when slot and key match the selected application.
func (m *MockCard) Authenticate(keySlot byte, key [KeySize]byte) error {
	m.Calls = append(m.Calls, fmt.Sprintf("Authenticate(%d)", keySlot))
	app, ok := m.Applications[m.selected]
	if !m.hasSelection || !ok || app.KeySlot != keySlot || app.Key != key {
		m.authed = false
		return errMockAuthFailed
	}
	m.authed = true
	return nil
}

// CardUID returns BackendUID after a successful authentication.
func (m *MockCard) CardUID() (string, error) {
	m.Calls = append(m.Calls, "CardUID")
	if !m.authed {
		return "", errMockNotAuthed
	}
	return m.BackendUID, nil
}

// Disconnect records the call.
func (m *MockCard) Disconnect() error {
	m.Calls = append(m.Calls, "Disconnect")
	m.authed = false
	m.hasSelection = false
	return nil
}

// MockCardProtocol returns scripted card batches, one per ListCards call.
// Once exhausted it returns an empty batch. A non-nil Unsupported makes
// enumeration panic with that value, like a protocol library meeting a card
// type it cannot wrap; Fallback then stands in for the poll target.
type MockCardProtocol struct {
	ListErr     error
	Unsupported any
	Batches     [][]Card
	Fallback    []Card
	lists       int
	releases    int
	mu          sync.Mutex
}

// NewMockCardProtocol creates a protocol that returns batches in order.
func NewMockCardProtocol(batches ...[]Card) *MockCardProtocol {
	return &MockCardProtocol{Batches: batches}
}

// ListCards returns the next batch.
func (m *MockCardProtocol) ListCards(_ Device) (*CardBatch, error) {
	m.mu.Lock()
	m.lists++
	fallback := m.Fallback
	m.mu.Unlock()

	return EnumerateCards(m.nextBatch, func() []Card { return fallback })
}

func (m *MockCardProtocol) nextBatch() (*CardBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.Unsupported != nil {
		panic(m.Unsupported)
	}
	var cards []Card
	if len(m.Batches) > 0 {
		cards = m.Batches[0]
		m.Batches = m.Batches[1:]
	}
	return NewCardBatch(cards, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.releases++
	}), nil
}

// Releases returns how many batches were released.
func (m *MockCardProtocol) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// Lists returns how many times ListCards was called.
func (m *MockCardProtocol) Lists() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}
