/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package session implements the client session core: the connection and
// registration machine, the call machine with its collision rules, and the
// intents the UI layer invokes. All state lives in a single Controller and
// every transition runs serialized through its dispatch queue.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
	"github.com/blinkrtc/blink-go-sdk/media"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// Mode selects how the session was entered.
type Mode int

const (
	ModeNormal Mode = iota
	ModeGuestCall
	ModeGuestConference
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeGuestCall:
		return "guest-call"
	case ModeGuestConference:
		return "guest-conference"
	default:
		return "normal"
	}
}

// IsGuest reports whether the session is a single-use guest session.
func (m Mode) IsGuest() bool {
	return m == ModeGuestCall || m == ModeGuestConference
}

// Status is a user-facing banner message.
type Status struct {
	Message string
	Level   string
}

// AudioCues plays the call progress tones.
type AudioCues interface {
	PlayOutboundRing()
	PlayInboundRing()
	StopRings()
	PlayHangup()
}

// Navigator applies navigation side effects. The router implementation
// runs requested paths through the navigation guard.
type Navigator interface {
	Navigate(path string)
}

// Notifier posts user-visible notifications. Acknowledgment continuations
// run when the user acts on a notification.
type Notifier interface {
	PostSystemNotification(title, body string, timeout time.Duration)
	PostMissedCall(from signaling.Identity, onAck func())
	PostConferenceInvite(from signaling.Identity, room string, onAck func())
}

// HistoryStore persists dialed targets and the last used credentials.
type HistoryStore interface {
	AddEntry(uri string) error
	SaveAccount(accountID, password string) error
}

// Deps are the collaborators injected into a Controller.
type Deps struct {
	Config   *blinksdk.Config
	Dialer   signaling.Dialer
	Media    media.Acquirer
	History  HistoryStore
	Notifier Notifier
	Cues     AudioCues
	Nav      Navigator
	Logger   zerolog.Logger
}

// State is a read-only snapshot of the session, rebuilt after every
// transition. The call and stream handles it carries stay owned by the
// controller.
type State struct {
	Mode              Mode
	AccountID         string
	DisplayName       string
	TargetURI         string
	Loading           string
	Status            *Status
	ConnectionState   signaling.ConnectionState
	RegistrationState signaling.RegistrationState
	CurrentCall       signaling.Call
	InboundCall       signaling.Call
	LocalMedia        *media.Stream
}

// Registered reports whether the account is usable for calls.
func (s State) Registered() bool {
	return s.RegistrationState == signaling.RegistrationRegistered
}

// Controller owns the session state. Intents and transport events all
// funnel through its dispatch queue, so transitions never interleave.
type Controller struct {
	deps   Deps
	logger zerolog.Logger

	qmu      sync.Mutex
	queue    []func()
	draining bool

	snapMu   sync.RWMutex
	snapshot State

	emitter *signaling.Emitter

	// spawn runs asynchronous work; tests replace it to run inline.
	spawn func(func())

	// inviteList is guarded by invMu rather than the dispatch queue:
	// TakeInviteList is called from view-change observers that run inside
	// a navigation transition, so it must never wait on the queue.
	invMu      sync.Mutex
	inviteList []string

	// Everything below is touched only by dispatch-run transitions.
	mode           Mode
	accountID      string
	password       string
	displayName    string
	targetURI      string
	loading        string
	status         *Status
	conn           signaling.Connection
	connSub        signaling.Subscription
	connState      signaling.ConnectionState
	account        signaling.Account
	accountSubs    []signaling.Subscription
	regState       signaling.RegistrationState
	currentCall    signaling.Call
	currentCallSub signaling.Subscription
	inboundCall    signaling.Call
	inboundCallSub signaling.Subscription
	localMedia     *media.Stream
	guestFired     bool
}

const eventSessionState = "sessionStateChanged"

// New creates a Controller. Config defaults are applied when nil.
func New(deps Deps) *Controller {
	if deps.Config == nil {
		deps.Config = blinksdk.DefaultConfig()
	}
	c := &Controller{
		deps:    deps,
		logger:  deps.Logger.With().Str("module", "session").Logger(),
		emitter: signaling.NewEmitter(),
		spawn:   func(fn func()) { go fn() },
	}
	c.snapshot = c.buildState()
	return c
}

// SetNavigator wires the navigation collaborator after construction. The
// router needs the controller to exist first, so the cycle is closed here.
func (c *Controller) SetNavigator(nav Navigator) {
	c.dispatch(func() {
		c.deps.Nav = nav
	})
}

// OnStateChanged registers a snapshot observer, invoked after every
// transition.
func (c *Controller) OnStateChanged(h func(State)) signaling.Subscription {
	return c.emitter.On(eventSessionState, func(data interface{}) {
		h(data.(State))
	})
}

// Snapshot returns the state as of the last completed transition.
func (c *Controller) Snapshot() State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// dispatch queues fn and drains the queue unless a drain is already in
// flight. A transition queued from within a running transition executes
// once the current one settles; that is also the deferred-task semantics
// intents rely on when they need work to run after the present transition.
func (c *Controller) dispatch(fn func()) {
	c.qmu.Lock()
	c.queue = append(c.queue, fn)
	if c.draining {
		c.qmu.Unlock()
		return
	}
	c.draining = true
	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.qmu.Unlock()

		next()
		c.publish()

		c.qmu.Lock()
	}
	c.draining = false
	c.qmu.Unlock()
}

func (c *Controller) publish() {
	snap := c.buildState()
	c.snapMu.Lock()
	c.snapshot = snap
	c.snapMu.Unlock()
	c.emitter.Emit(eventSessionState, snap)
}

func (c *Controller) buildState() State {
	return State{
		Mode:              c.mode,
		AccountID:         c.accountID,
		DisplayName:       c.displayName,
		TargetURI:         c.targetURI,
		Loading:           c.loading,
		Status:            c.status,
		ConnectionState:   c.connState,
		RegistrationState: c.regState,
		CurrentCall:       c.currentCall,
		InboundCall:       c.inboundCall,
		LocalMedia:        c.localMedia,
	}
}

// navigate queues the navigation side effect behind the running
// transition, so the guard evaluates the settled state.
func (c *Controller) navigate(path string) {
	if c.deps.Nav == nil {
		return
	}
	c.dispatch(func() {
		c.deps.Nav.Navigate(path)
	})
}

func (c *Controller) closeLocalMedia() {
	if c.localMedia != nil {
		c.localMedia.Close()
		c.localMedia = nil
	}
}

// acquireMedia obtains local media off the dispatch queue and re-enters
// with the result. The continuation runs only on success; failures post a
// notification and leave the session as it was.
func (c *Controller) acquireMedia(constraints media.Constraints, then func(stream *media.Stream)) {
	c.loading = "Please allow access to your media devices"
	c.spawn(func() {
		stream, err := c.deps.Media.Acquire(context.Background(), constraints)
		c.dispatch(func() {
			c.loading = ""
			if err != nil {
				c.logger.Error().Err(err).Msg("local media acquisition failed")
				c.deps.Notifier.PostSystemNotification("Error", "Access to media devices failed", failureNotifyTimeout)
				return
			}
			c.status = nil
			c.localMedia = stream
			then(stream)
		})
	})
}

const (
	successNotifyTimeout = 5 * time.Second
	failureNotifyTimeout = 10 * time.Second
	incomingNotifyExpiry = 15 * time.Second
)
