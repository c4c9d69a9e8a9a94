/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"sync"

	"github.com/google/uuid"

	"github.com/blinkrtc/blink-go-sdk/media"
)

// Emitter event keys for accounts.
const (
	eventRegistrationState = "registrationStateChanged"
	eventIncomingCall      = "incomingCall"
	eventOutgoingCall      = "outgoingCall"
	eventMissedCall        = "missedCall"
	eventConferenceInvite  = "conferenceInvite"
)

type registrationChange struct {
	oldState RegistrationState
	newState RegistrationState
	reason   string
}

type incomingCall struct {
	call  Call
	types MediaTypes
}

// wsAccount is a SIP account bound to a websocket connection.
type wsAccount struct {
	conn    *wsConnection
	emitter *Emitter

	mu       sync.Mutex
	id       string
	display  string
	regState RegistrationState
}

func newWSAccount(conn *wsConnection, opts AccountOptions) *wsAccount {
	return &wsAccount{
		conn:    conn,
		emitter: NewEmitter(),
		id:      opts.Account,
		display: opts.DisplayName,
	}
}

func (a *wsAccount) ID() string {
	return a.id
}

func (a *wsAccount) identity() Identity {
	return Identity{URI: a.id, DisplayName: a.display}
}

func (a *wsAccount) Register() {
	a.conn.send(&wsMessage{Type: msgRegister, Account: a.id})
}

func (a *wsAccount) Unregister() {
	a.conn.send(&wsMessage{Type: msgUnregister, Account: a.id})
}

func (a *wsAccount) Call(target string, stream *media.Stream) Call {
	call := newWSCall(a.conn, uuid.NewString(), a.identity(), Identity{URI: target}, false)
	call.addLocalStream(stream)
	a.conn.registerCall(call)
	a.conn.send(&wsMessage{
		Type:    msgSessionCreate,
		Account: a.id,
		Session: call.id,
		URI:     target,
	})
	a.emitter.Emit(eventOutgoingCall, call)
	return call
}

func (a *wsAccount) JoinConference(room string, stream *media.Stream) Call {
	call := newWSCall(a.conn, uuid.NewString(), a.identity(), Identity{URI: room}, true)
	call.addLocalStream(stream)
	a.conn.registerCall(call)
	a.conn.send(&wsMessage{
		Type:    msgRoomJoin,
		Account: a.id,
		Session: call.id,
		URI:     room,
	})
	a.emitter.Emit(eventOutgoingCall, call)
	return call
}

func (a *wsAccount) OnRegistrationStateChanged(h RegistrationStateHandler) Subscription {
	return a.emitter.On(eventRegistrationState, func(data interface{}) {
		change := data.(registrationChange)
		h(change.oldState, change.newState, change.reason)
	})
}

func (a *wsAccount) OnIncomingCall(h func(Call, MediaTypes)) Subscription {
	return a.emitter.On(eventIncomingCall, func(data interface{}) {
		in := data.(incomingCall)
		h(in.call, in.types)
	})
}

func (a *wsAccount) OnOutgoingCall(h func(Call)) Subscription {
	return a.emitter.On(eventOutgoingCall, func(data interface{}) {
		h(data.(Call))
	})
}

func (a *wsAccount) OnMissedCall(h func(MissedCall)) Subscription {
	return a.emitter.On(eventMissedCall, func(data interface{}) {
		h(data.(MissedCall))
	})
}

func (a *wsAccount) OnConferenceInvite(h func(ConferenceInvite)) Subscription {
	return a.emitter.On(eventConferenceInvite, func(data interface{}) {
		h(data.(ConferenceInvite))
	})
}

// handleEvent routes an account-event envelope from the gateway.
func (a *wsAccount) handleEvent(msg *wsMessage) {
	switch msg.Event {
	case evRegistrationState:
		if msg.Data == nil {
			return
		}
		a.mu.Lock()
		old := a.regState
		a.regState = RegistrationState(msg.Data.State)
		a.mu.Unlock()
		a.emitter.Emit(eventRegistrationState, registrationChange{
			oldState: old,
			newState: RegistrationState(msg.Data.State),
			reason:   msg.Data.Reason,
		})

	case evIncomingSession:
		if msg.Data == nil || msg.Data.Originator == nil {
			return
		}
		remote := Identity{URI: msg.Data.Originator.URI, DisplayName: msg.Data.Originator.DisplayName}
		call := newWSCall(a.conn, msg.Session, a.identity(), remote, false)
		call.setIncoming(MediaTypes{Audio: msg.Data.Audio, Video: msg.Data.Video})
		a.conn.registerCall(call)
		a.emitter.Emit(eventIncomingCall, incomingCall{
			call:  call,
			types: MediaTypes{Audio: msg.Data.Audio, Video: msg.Data.Video},
		})

	case evMissedSession:
		if msg.Data == nil || msg.Data.Originator == nil {
			return
		}
		a.emitter.Emit(eventMissedCall, MissedCall{
			Originator: Identity{URI: msg.Data.Originator.URI, DisplayName: msg.Data.Originator.DisplayName},
		})

	case evConferenceInvite:
		if msg.Data == nil || msg.Data.Originator == nil {
			return
		}
		a.emitter.Emit(eventConferenceInvite, ConferenceInvite{
			Originator: Identity{URI: msg.Data.Originator.URI, DisplayName: msg.Data.Originator.DisplayName},
			Room:       msg.Data.Room,
		})
	}
}
