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
)

// Reader errors
var (
	ErrNoDevice      = errors.New("no NFC device found")
	ErrLinkClosed    = errors.New("reader link is closed")
	ErrPollTimeout   = errors.New("poll timeout")
	ErrDeviceIO      = errors.New("device input/output error")
	ErrDeviceFailure = errors.New("device failure")
)

// Card errors
var (
	ErrUIDNotFound       = errors.New("uid not found")
	ErrCardNotSupported  = errors.New("card does not support this operation")
	ErrNoCredentials     = errors.New("credential table is empty")
	ErrInvalidCredential = errors.New("invalid credential")
)

// ErrorType classifies device errors by how the poll loop reacts to them.
type ErrorType int

const (
	// ErrorTypePermanent requires a full reset of the reader link.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient is retried on the same link after a short delay.
	ErrorTypeTransient
	// ErrorTypeTimeout means nothing answered within the poll window.
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// DeviceError is returned by Device implementations for failed operations.
// Code carries the driver's native error code (libnfc codes are negative).
type DeviceError struct {
	Err  error
	Op   string
	Path string
	Code int
}

func (e *DeviceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v [%d]", e.Op, e.Path, e.Err, e.Code)
	}
	return fmt.Sprintf("%s: %v [%d]", e.Op, e.Err, e.Code)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError wraps err for operation op on the device at path.
func NewDeviceError(op, path string, code int, err error) *DeviceError {
	return &DeviceError{Op: op, Path: path, Code: code, Err: err}
}

// GetErrorType returns how err should be handled by the poll loop.
func GetErrorType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrPollTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrDeviceIO):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// IsTimeout reports whether err is a poll timeout.
func IsTimeout(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeTimeout
}

// IsTransient reports whether err can be retried without resetting the link.
func IsTransient(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeTransient
}

// CredentialError reports a key table entry that could not be constructed.
type CredentialError struct {
	Err   error
	Index int
	AID   uint32
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %d (AID %06x): %v", e.Index, e.AID, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
