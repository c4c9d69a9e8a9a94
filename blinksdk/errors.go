/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package blinksdk

import (
	"errors"
	"fmt"
)

// MediaError reports a failure to acquire local media devices. Acquisition
// failures are surfaced to the user but never abort the session, so callers
// generally log the error and post a notification.
type MediaError struct {
	// Constraint describes what was requested, e.g. "audio+video".
	Constraint string

	// Err is the underlying device or permission error.
	Err error
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media acquisition failed (%s): %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("media acquisition failed (%s)", e.Constraint)
}

// Unwrap returns the wrapped error, if any.
func (e *MediaError) Unwrap() error {
	return e.Err
}

// RegistrationError reports a SIP registration failure. Reason carries the
// raw reason string from the gateway; Label is the user-facing
// classification derived from it.
type RegistrationError struct {
	Reason string
	Label  string
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("registration failed: %s (%s)", e.Label, e.Reason)
	}
	return "registration failed: " + e.Label
}

// RouteError reports an invalid route parameter, such as a call target
// without a domain part or a conference room with illegal characters.
type RouteError struct {
	Route   string
	Param   string
	Message string
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	return fmt.Sprintf("invalid %s parameter %q: %s", e.Route, e.Param, e.Message)
}

// IsMediaError reports whether err is a media acquisition failure.
func IsMediaError(err error) bool {
	var e *MediaError
	return errors.As(err, &e)
}

// IsRegistrationError reports whether err is a registration failure.
func IsRegistrationError(err error) bool {
	var e *RegistrationError
	return errors.As(err, &e)
}

// IsRouteError reports whether err is an invalid route parameter.
func IsRouteError(err error) bool {
	var e *RouteError
	return errors.As(err, &e)
}
