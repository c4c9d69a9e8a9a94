/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"github.com/google/uuid"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// StartNormalLogin begins a registered session with the given credentials.
func (c *Controller) StartNormalLogin(accountID, password string) {
	c.dispatch(func() {
		c.mode = ModeNormal
		c.accountID = blinksdk.NormalizeURI(accountID, c.deps.Config.DefaultDomain)
		c.password = password
		c.guestFired = false
		c.loading = "Connecting..."
		c.ensureConnection()
	})
}

// StartGuestCall begins a single-use guest session that dials target as
// soon as the synthesized account is bound.
func (c *Controller) StartGuestCall(displayName, target string) {
	c.dispatch(func() {
		c.mode = ModeGuestCall
		c.accountID = uuid.NewString() + "@" + c.deps.Config.DefaultGuestDomain
		c.password = ""
		c.displayName = displayName
		c.targetURI = blinksdk.NormalizeURI(target, c.deps.Config.DefaultDomain)
		c.guestFired = false
		c.loading = "Connecting..."
		c.ensureConnection()
	})
}

// StartGuestConference begins a single-use guest session that joins room as
// soon as the synthesized account is bound.
func (c *Controller) StartGuestConference(displayName, room string) {
	c.dispatch(func() {
		c.mode = ModeGuestConference
		c.accountID = uuid.NewString() + "@" + c.deps.Config.DefaultGuestDomain
		c.password = ""
		c.displayName = displayName
		c.targetURI = blinksdk.NormalizeURI(room, c.deps.Config.DefaultConferenceDomain)
		c.guestFired = false
		c.loading = "Connecting..."
		c.ensureConnection()
	})
}

// Logout tears the account down. The work is deferred one transition so a
// navigation that triggered the logout settles first. Safe to invoke in
// any state.
func (c *Controller) Logout() {
	c.dispatch(func() {
		c.dispatch(c.performLogout)
	})
}

func (c *Controller) performLogout() {
	if c.regState != signaling.RegistrationNone && c.mode == ModeNormal && c.account != nil {
		c.account.Unregister()
	}
	if c.account != nil && c.conn != nil {
		acc := c.account
		c.conn.RemoveAccount(acc, func(err error) {
			if err != nil {
				c.logger.Warn().Err(err).Str("account", acc.ID()).Msg("account removal failed")
			}
		})
	}
	c.cancelAccountSubs()
	c.account = nil
	c.regState = signaling.RegistrationNone
	c.status = nil
	c.navigate("/login")
}

// ensureConnection dials the gateway on first use; an existing connection
// goes straight to registration.
func (c *Controller) ensureConnection() {
	if c.conn != nil {
		c.processRegistration()
		return
	}

	conn, err := c.deps.Dialer.Dial(c.deps.Config.WSServer)
	if err != nil {
		c.logger.Error().Err(err).Msg("gateway dial failed")
		c.loading = ""
		c.status = &Status{Message: "Connection failed", Level: "danger"}
		return
	}
	c.conn = conn
	c.connState = conn.State()
	c.connSub = conn.OnStateChanged(func(oldState, newState signaling.ConnectionState) {
		c.dispatch(func() {
			c.connectionStateChanged(oldState, newState)
		})
	})
}

func (c *Controller) connectionStateChanged(oldState, newState signaling.ConnectionState) {
	c.logger.Debug().
		Str("old", string(oldState)).
		Str("new", string(newState)).
		Msg("connection state changed")
	c.connState = newState

	switch newState {
	case signaling.ConnectionClosed:
		if c.connSub != nil {
			c.connSub.Cancel()
			c.connSub = nil
		}
		c.conn = nil

	case signaling.ConnectionReady:
		c.processRegistration()

	case signaling.ConnectionDisconnected:
		c.deps.Cues.StopRings()
		c.closeLocalMedia()

		if c.currentCall != nil {
			if c.currentCallSub != nil {
				c.currentCallSub.Cancel()
				c.currentCallSub = nil
			}
			c.currentCall.Terminate()
		}
		if c.inboundCall != nil && c.inboundCall != c.currentCall {
			if c.inboundCallSub != nil {
				c.inboundCallSub.Cancel()
				c.inboundCallSub = nil
			}
			c.inboundCall.Terminate()
		}
		c.currentCall = nil
		c.inboundCall = nil
		c.inboundCallSub = nil

		c.cancelAccountSubs()
		c.account = nil
		c.regState = signaling.RegistrationNone
		c.guestFired = false
		c.loading = "Disconnected, reconnecting..."

	default:
		c.loading = "Connecting..."
	}
}

// processRegistration replaces any stale account binding, then binds the
// session credentials. Removal of the old account is best effort.
func (c *Controller) processRegistration() {
	if c.account != nil {
		old := c.account
		c.cancelAccountSubs()
		c.account = nil
		c.regState = signaling.RegistrationNone
		c.conn.RemoveAccount(old, func(err error) {
			if err != nil {
				c.logger.Warn().Err(err).Str("account", old.ID()).Msg("stale account removal failed")
			}
		})
	}

	opts := signaling.AccountOptions{
		Account:     c.accountID,
		Password:    c.password,
		DisplayName: c.displayName,
	}
	c.conn.AddAccount(opts, func(acc signaling.Account, err error) {
		c.dispatch(func() {
			c.accountAdded(acc, err)
		})
	})
}

func (c *Controller) accountAdded(acc signaling.Account, err error) {
	if err != nil {
		c.logger.Error().Err(err).Str("account", c.accountID).Msg("account binding failed")
		c.loading = ""
		c.status = &Status{Message: "Connection failed", Level: "danger"}
		return
	}

	c.account = acc
	c.accountSubs = append(c.accountSubs,
		acc.OnOutgoingCall(func(call signaling.Call) {
			c.dispatch(func() { c.outgoingCall(call) })
		}),
	)

	if c.mode == ModeNormal {
		c.accountSubs = append(c.accountSubs,
			acc.OnRegistrationStateChanged(func(oldState, newState signaling.RegistrationState, reason string) {
				c.dispatch(func() { c.registrationStateChanged(oldState, newState, reason) })
			}),
			acc.OnIncomingCall(func(call signaling.Call, types signaling.MediaTypes) {
				c.dispatch(func() { c.incomingCall(call, types) })
			}),
			acc.OnMissedCall(func(missed signaling.MissedCall) {
				c.dispatch(func() { c.missedCall(missed) })
			}),
			acc.OnConferenceInvite(func(invite signaling.ConferenceInvite) {
				c.dispatch(func() { c.conferenceInvite(invite) })
			}),
		)
		acc.Register()
		return
	}

	// Guest accounts never register; the single guest action fires once
	// per session entry.
	c.loading = ""
	c.regState = signaling.RegistrationRegistered
	if c.guestFired {
		return
	}
	c.guestFired = true
	switch c.mode {
	case ModeGuestCall:
		c.placeCall(c.targetURI)
	case ModeGuestConference:
		c.startConference(c.targetURI)
	}
}

func (c *Controller) registrationStateChanged(oldState, newState signaling.RegistrationState, reason string) {
	c.logger.Debug().
		Str("old", string(oldState)).
		Str("new", string(newState)).
		Str("reason", reason).
		Msg("registration state changed")
	c.regState = newState

	switch newState {
	case signaling.RegistrationFailed:
		regErr := &blinksdk.RegistrationError{Reason: reason, Label: ClassifyRegistrationFailure(reason)}
		c.logger.Warn().Err(regErr).Msg("registration failed")
		c.loading = ""
		c.status = &Status{Message: "Sign In failed: " + regErr.Label, Level: "danger"}

	case signaling.RegistrationRegistered:
		c.loading = ""
		c.status = nil
		if err := c.deps.History.SaveAccount(c.accountID, c.password); err != nil {
			c.logger.Warn().Err(err).Msg("saving credentials failed")
		}
		c.navigate("/ready")

	default:
		c.status = nil
	}
}

func (c *Controller) cancelAccountSubs() {
	for _, sub := range c.accountSubs {
		sub.Cancel()
	}
	c.accountSubs = nil
}
