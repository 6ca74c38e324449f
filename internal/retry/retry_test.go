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

package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForever(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	var retried []int
	calls := 0
	errBusy := errors.New("device busy")

	result, failures := Forever(Config{
		Delay:   50 * time.Millisecond,
		Sleep:   func(d time.Duration) { sleeps = append(sleeps, d) },
		OnRetry: func(attempt int, err error) {
			retried = append(retried, attempt)
			assert.ErrorIs(t, err, errBusy)
		},
	}, func() (string, error) {
		calls++
		if calls < 4 {
			return "", errBusy
		}
		return "open", nil
	})

	assert.Equal(t, "open", result)
	assert.Equal(t, 3, failures)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, retried)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond}, sleeps)
}

func TestForever_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	slept := false
	result, failures := Forever(Config{
		Delay: time.Second,
		Sleep: func(time.Duration) { slept = true },
	}, func() (int, error) { return 7, nil })

	assert.Equal(t, 7, result)
	assert.Equal(t, 0, failures)
	assert.False(t, slept)
}

func TestForever_ZeroDelaySkipsSleep(t *testing.T) {
	t.Parallel()

	slept := false
	calls := 0
	_, failures := Forever(Config{Sleep: func(time.Duration) { slept = true }}, func() (struct{}, error) {
		calls++
		if calls == 1 {
			return struct{}{}, errors.New("once")
		}
		return struct{}{}, nil
	})

	assert.Equal(t, 1, failures)
	assert.False(t, slept)
}
