/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"github.com/google/uuid"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
	"github.com/blinkrtc/blink-go-sdk/media"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// PlaceCall dials target from the current account.
func (c *Controller) PlaceCall(target string) {
	c.dispatch(func() {
		c.placeCall(blinksdk.NormalizeURI(target, c.deps.Config.DefaultDomain))
	})
}

// StartConference joins (creating if needed) the conference room.
func (c *Controller) StartConference(room string) {
	c.dispatch(func() {
		c.startConference(blinksdk.NormalizeURI(room, c.deps.Config.DefaultConferenceDomain))
	})
}

// EscalateToConference moves the current call into a fresh conference room
// and invites the listed participants to it.
func (c *Controller) EscalateToConference(participants []string) {
	c.dispatch(func() {
		if c.currentCall == nil {
			return
		}
		if c.currentCallSub != nil {
			c.currentCallSub.Cancel()
			c.currentCallSub = nil
		}
		old := c.currentCall
		c.currentCall = nil
		c.inboundCall = nil
		c.setInviteList(participants)
		c.closeLocalMedia()
		old.Terminate()

		room := uuid.NewString()[:8] + "@" + c.deps.Config.DefaultConferenceDomain
		c.dispatch(func() { c.startConference(room) })
	})
}

// Answer accepts the pending inbound call. When another call is already
// current, it is torn down first: listeners detach, the old call
// terminates, the pending call is promoted and resubscribed, and only then
// is media acquired for the answer.
func (c *Controller) Answer() {
	c.dispatch(c.answer)
}

// Reject declines the pending inbound call.
func (c *Controller) Reject() {
	c.dispatch(func() {
		if c.inboundCall == nil {
			return
		}
		c.inboundCall.Terminate()
	})
}

// Hangup terminates the current call. With no call in flight it releases
// speculative local media and returns to the ready screen.
func (c *Controller) Hangup() {
	c.dispatch(func() {
		if c.currentCall != nil {
			c.currentCall.Terminate()
			return
		}
		c.closeLocalMedia()
		c.navigate("/ready")
	})
}

// TakeInviteList returns and clears the pending conference invite list.
// It never blocks on the dispatch queue, so it is safe to call from a
// view-change observer fired during a navigation transition.
func (c *Controller) TakeInviteList() []string {
	c.invMu.Lock()
	defer c.invMu.Unlock()
	list := c.inviteList
	c.inviteList = nil
	return list
}

func (c *Controller) setInviteList(participants []string) {
	c.invMu.Lock()
	c.inviteList = participants
	c.invMu.Unlock()
}

func (c *Controller) placeCall(target string) {
	if c.account == nil {
		return
	}
	c.targetURI = target
	if c.mode == ModeNormal {
		if err := c.deps.History.AddEntry(target); err != nil {
			c.logger.Warn().Err(err).Str("target", target).Msg("history append failed")
		}
	}
	c.acquireMedia(media.DefaultConstraints(), func(stream *media.Stream) {
		if c.account == nil {
			return
		}
		c.account.Call(target, stream)
		if c.mode == ModeNormal {
			c.navigate("/call")
		}
	})
}

func (c *Controller) startConference(room string) {
	if c.account == nil {
		return
	}
	c.targetURI = room
	c.acquireMedia(media.DefaultConstraints(), func(stream *media.Stream) {
		if c.account == nil {
			return
		}
		c.account.JoinConference(room, stream)
		if c.mode == ModeNormal {
			c.navigate("/conference")
		}
	})
}

// outgoingCall adopts a call the account just created as the current call.
func (c *Controller) outgoingCall(call signaling.Call) {
	if c.currentCallSub != nil {
		c.currentCallSub.Cancel()
	}
	c.currentCall = call
	c.currentCallSub = call.OnStateChanged(func(oldState, newState signaling.CallState, reason string) {
		c.dispatch(func() { c.callStateChanged(oldState, newState, reason) })
	})
}

func (c *Controller) incomingCall(call signaling.Call, types signaling.MediaTypes) {
	c.logger.Debug().
		Str("call", call.ID()).
		Str("from", call.RemoteIdentity().URI).
		Msg("incoming call")

	if !types.Audio && !types.Video {
		call.Terminate()
		return
	}

	if c.currentCall != nil {
		// A call from our own address while busy is a loopback; drop it.
		if c.currentCall.LocalIdentity().URI == call.RemoteIdentity().URI {
			call.Terminate()
			return
		}
		c.inboundCall = call
		c.inboundCallSub = call.OnStateChanged(func(oldState, newState signaling.CallState, reason string) {
			c.dispatch(func() { c.inboundCallStateChanged(oldState, newState, reason) })
		})
	} else {
		c.deps.Cues.PlayInboundRing()
		c.currentCall = call
		c.inboundCall = call
		c.currentCallSub = call.OnStateChanged(func(oldState, newState signaling.CallState, reason string) {
			c.dispatch(func() { c.callStateChanged(oldState, newState, reason) })
		})
	}

	c.deps.Notifier.PostSystemNotification(
		"Incoming call", "From "+call.RemoteIdentity().String(), incomingNotifyExpiry)
}

func (c *Controller) answer() {
	if c.inboundCall == nil {
		return
	}

	if c.inboundCall != c.currentCall {
		if c.inboundCallSub != nil {
			c.inboundCallSub.Cancel()
			c.inboundCallSub = nil
		}
		if c.currentCallSub != nil {
			c.currentCallSub.Cancel()
			c.currentCallSub = nil
		}
		old := c.currentCall
		if old != nil {
			old.Terminate()
		}
		c.currentCall = c.inboundCall
		c.closeLocalMedia()
		c.currentCallSub = c.currentCall.OnStateChanged(func(oldState, newState signaling.CallState, reason string) {
			c.dispatch(func() { c.callStateChanged(oldState, newState, reason) })
		})
	}

	call := c.inboundCall
	types := call.MediaTypes()
	c.acquireMedia(media.FromMediaTypes(types.Audio, types.Video), func(stream *media.Stream) {
		if err := call.Answer(stream); err != nil {
			c.logger.Error().Err(err).Str("call", call.ID()).Msg("answer failed")
			return
		}
		c.navigate("/call")
	})
}

func (c *Controller) callStateChanged(oldState, newState signaling.CallState, reason string) {
	c.logger.Debug().
		Str("old", string(oldState)).
		Str("new", string(newState)).
		Str("reason", reason).
		Msg("call state changed")

	switch newState {
	case signaling.CallStateProgress:
		c.deps.Cues.PlayOutboundRing()

	case signaling.CallStateAccepted, signaling.CallStateEstablished:
		c.deps.Cues.StopRings()

	case signaling.CallStateTerminated:
		c.callTerminated(reason)
	}
}

func (c *Controller) callTerminated(reason string) {
	result := ClassifyTermination(reason)

	c.deps.Cues.StopRings()
	c.deps.Cues.PlayHangup()

	timeout := failureNotifyTimeout
	if result.Success {
		timeout = successNotifyTimeout
	}
	c.deps.Notifier.PostSystemNotification("Call Terminated", result.Label, timeout)

	if result.Success {
		c.targetURI = ""
	}

	if c.currentCallSub != nil {
		c.currentCallSub.Cancel()
		c.currentCallSub = nil
	}
	if c.inboundCallSub != nil {
		c.inboundCallSub.Cancel()
		c.inboundCallSub = nil
	}
	c.currentCall = nil
	c.inboundCall = nil
	c.closeLocalMedia()
	c.setInviteList(nil)

	c.navigate("/ready")
}

// inboundCallStateChanged watches a parked inbound call while another call
// is current. It only needs to clear the pending slot on termination.
func (c *Controller) inboundCallStateChanged(oldState, newState signaling.CallState, reason string) {
	if newState != signaling.CallStateTerminated {
		return
	}
	c.logger.Debug().Str("reason", reason).Msg("pending inbound call ended")
	if c.inboundCallSub != nil {
		c.inboundCallSub.Cancel()
		c.inboundCallSub = nil
	}
	c.inboundCall = nil
}

func (c *Controller) missedCall(missed signaling.MissedCall) {
	c.logger.Debug().Str("from", missed.Originator.URI).Msg("missed call")
	c.deps.Notifier.PostSystemNotification(
		"Missed call", "From "+missed.Originator.String(), failureNotifyTimeout)
	c.deps.Notifier.PostMissedCall(missed.Originator, func() {
		c.dispatch(func() {
			if c.currentCall != nil {
				if c.currentCallSub != nil {
					c.currentCallSub.Cancel()
					c.currentCallSub = nil
				}
				old := c.currentCall
				c.currentCall = nil
				c.inboundCall = nil
				c.closeLocalMedia()
				old.Terminate()
			}
			c.targetURI = missed.Originator.URI
			c.navigate("/ready")
		})
	})
}

func (c *Controller) conferenceInvite(invite signaling.ConferenceInvite) {
	c.logger.Debug().
		Str("from", invite.Originator.URI).
		Str("room", invite.Room).
		Msg("conference invite")
	c.deps.Notifier.PostSystemNotification(
		"Conference invite", "From "+invite.Originator.String(), incomingNotifyExpiry)
	c.deps.Notifier.PostConferenceInvite(invite.Originator, invite.Room, func() {
		c.dispatch(func() {
			if c.currentCall != nil {
				if c.currentCallSub != nil {
					c.currentCallSub.Cancel()
					c.currentCallSub = nil
				}
				old := c.currentCall
				c.currentCall = nil
				c.inboundCall = nil
				c.closeLocalMedia()
				old.Terminate()
			}
			c.dispatch(func() { c.startConference(invite.Room) })
		})
	})
}
