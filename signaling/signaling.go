/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package signaling defines the transport surface the session core
// consumes: connections, accounts, calls and conference participants, all
// event-driven with cancellable subscriptions. The websocket implementation
// in this package talks the SIP gateway's JSON protocol; tests substitute
// in-memory fakes.
package signaling

import (
	"github.com/blinkrtc/blink-go-sdk/media"
)

// ---- State enums ----

// ConnectionState is the lifecycle state of a gateway connection.
type ConnectionState string

const (
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionReady        ConnectionState = "ready"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionClosed       ConnectionState = "closed"
)

// RegistrationState is the SIP registration state of an account.
type RegistrationState string

const (
	RegistrationNone        RegistrationState = ""
	RegistrationRegistering RegistrationState = "registering"
	RegistrationRegistered  RegistrationState = "registered"
	RegistrationFailed      RegistrationState = "failed"
)

// CallState is the lifecycle state of a call session.
type CallState string

const (
	CallStateNone        CallState = ""
	CallStateProgress    CallState = "progress"
	CallStateAccepted    CallState = "accepted"
	CallStateEstablished CallState = "established"
	CallStateTerminated  CallState = "terminated"
)

// ParticipantState is the state of a conference participant.
type ParticipantState string

const (
	ParticipantStateNone        ParticipantState = ""
	ParticipantStateProgress    ParticipantState = "progress"
	ParticipantStateEstablished ParticipantState = "established"
)

// ---- Value types ----

// Identity is a SIP address with an optional display name.
type Identity struct {
	URI         string
	DisplayName string
}

// String returns the display name when set, otherwise the URI.
func (i Identity) String() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.URI
}

// MediaTypes describes which media an offer carries.
type MediaTypes struct {
	Audio bool
	Video bool
}

// AccountOptions are the credentials for binding an account to a
// connection. Guest accounts carry an empty password.
type AccountOptions struct {
	Account     string
	Password    string
	DisplayName string
}

// MissedCall announces a call that terminated before it was answered.
type MissedCall struct {
	Originator Identity
}

// ConferenceInvite announces an invitation into a conference room.
type ConferenceInvite struct {
	Originator Identity
	Room       string
}

// ---- Handler signatures ----

type ConnectionStateHandler func(oldState, newState ConnectionState)

type RegistrationStateHandler func(oldState, newState RegistrationState, reason string)

type CallStateHandler func(oldState, newState CallState, reason string)

type ParticipantStateHandler func(oldState, newState ParticipantState)

// ---- Interfaces ----

// Dialer opens gateway connections. Dial returns immediately with a
// connection in the connecting state; progress arrives via OnStateChanged.
type Dialer interface {
	Dial(serverURL string) (Connection, error)
}

// Connection is a live link to the gateway. The transport owns
// reconnection; observers only see disconnected/ready transitions.
type Connection interface {
	State() ConnectionState
	OnStateChanged(h ConnectionStateHandler) Subscription

	// AddAccount binds credentials to the connection. The callback runs
	// on a transport goroutine once the gateway acknowledges.
	AddAccount(opts AccountOptions, done func(Account, error))

	// RemoveAccount unbinds an account, best effort.
	RemoveAccount(account Account, done func(error))

	Close()
}

// Account is a bound SIP account. Guest accounts never call Register.
type Account interface {
	ID() string

	Register()
	Unregister()

	// Call dials target with the given local stream and returns the
	// outgoing call. The same call is also announced via OnOutgoingCall.
	Call(target string, stream *media.Stream) Call

	// JoinConference joins (creating if needed) a conference room.
	JoinConference(room string, stream *media.Stream) Call

	OnRegistrationStateChanged(h RegistrationStateHandler) Subscription
	OnIncomingCall(h func(call Call, types MediaTypes)) Subscription
	OnOutgoingCall(h func(call Call)) Subscription
	OnMissedCall(h func(MissedCall)) Subscription
	OnConferenceInvite(h func(ConferenceInvite)) Subscription
}

// Call is a point-to-point or conference call session.
type Call interface {
	ID() string
	LocalIdentity() Identity
	RemoteIdentity() Identity
	State() CallState

	// MediaTypes reports what the remote offer carries. Meaningful for
	// incoming calls.
	MediaTypes() MediaTypes

	LocalStreams() []*media.Stream
	RemoteStreams() []*media.Stream

	// Participants returns the conference roster in arrival order.
	// Empty for point-to-point calls.
	Participants() []Participant

	OnStateChanged(h CallStateHandler) Subscription
	OnParticipantJoined(h func(Participant)) Subscription
	OnParticipantLeft(h func(Participant)) Subscription

	// Answer accepts an incoming call with the given local stream.
	Answer(stream *media.Stream) error

	// Invite asks the conference focus to bring in more participants.
	Invite(participants []string)

	Terminate()
}

// Participant is a remote member of a conference call.
type Participant interface {
	ID() string
	Identity() Identity
	State() ParticipantState
	Streams() []*media.Stream

	OnStateChanged(h ParticipantStateHandler) Subscription

	// Attach asks the focus to start forwarding this participant's media.
	Attach()
	Detach()
}
