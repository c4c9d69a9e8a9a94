/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package routes implements the navigation guard and the route table that
// map requested paths to views.
package routes

import (
	"github.com/blinkrtc/blink-go-sdk/session"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// Well-known paths.
const (
	RouteLogin        = "/login"
	RouteLogout       = "/logout"
	RouteReady        = "/ready"
	RouteCall         = "/call"
	RouteConference   = "/conference"
	RouteNotSupported = "/not-supported"
)

// Action is the guard's verdict on a navigation request.
type Action int

const (
	// Allow lets the navigation proceed.
	Allow Action = iota

	// Deny keeps the previous path.
	Deny

	// Redirect sends the navigation to Directive.Route instead.
	Redirect

	// DenyAndHangup keeps the previous path and terminates the current
	// call; its termination will drive the navigation later.
	DenyAndHangup
)

// Directive is the guard's decision.
type Directive struct {
	Action Action
	Route  string
}

// Guard evaluates navigation requests against the session state. Supported
// is the platform capability flag; when false everything forces to the
// not-supported page.
type Guard struct {
	Supported bool
}

// Decide returns the verdict for navigating from prev to next given the
// session snapshot. It is a pure function of its arguments.
func (g Guard) Decide(prev, next string, snap session.State) Directive {
	// An unsupported platform can only ever see the explanation page.
	if !g.Supported && next != RouteNotSupported {
		return Directive{Action: Redirect, Route: RouteNotSupported}
	}

	// Going back to the login screen with a live registration means the
	// user wants out.
	if prev == RouteReady && next == RouteLogin && snap.RegistrationState != signaling.RegistrationNone {
		return Directive{Action: Redirect, Route: RouteLogout}
	}

	// The in-call screens are meaningless without local media while
	// registered; the request is premature.
	if (next == RouteCall || next == RouteConference) && snap.LocalMedia == nil && snap.Registered() {
		return Directive{Action: Deny}
	}

	// Leaving for the ready screen during a live call hangs up instead;
	// the termination handler performs the navigation.
	if next == RouteReady && snap.Registered() && snap.CurrentCall != nil {
		return Directive{Action: DenyAndHangup}
	}

	// Guest sessions are single use; there is no ready screen to return
	// to.
	if next == RouteReady && snap.Mode.IsGuest() {
		return Directive{Action: Redirect, Route: RouteLogout}
	}

	return Directive{Action: Allow}
}
