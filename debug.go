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
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	debugEnabled atomic.Bool
	logger       atomic.Pointer[zerolog.Logger]
)

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", "getuid").Logger()
	logger.Store(&l)
}

// SetDebugEnabled turns trace output of the library on or off.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger replaces the logger used for trace and operator messages.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Logger returns the logger used by the library.
func Logger() *zerolog.Logger {
	return logger.Load()
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Logger().Debug().Msg(fmt.Sprintf(format, args...))
}

func debugln(args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Logger().Debug().Msg(fmt.Sprint(args...))
}
