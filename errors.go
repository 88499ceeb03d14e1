// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecog

import "errors"

var (
	// ErrSourceUnavailable is returned when a recording cannot be opened,
	// parsed or read. It aborts dataset construction.
	ErrSourceUnavailable = errors.New("signal source unavailable")

	// ErrConfig is returned for invalid configuration. It is always raised
	// before any file is touched.
	ErrConfig = errors.New("invalid configuration")
)
