/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
	"github.com/blinkrtc/blink-go-sdk/media"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// opLog records the order of operations across fakes, so tests can pin
// sequencing contracts.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ops))
	copy(out, l.ops)
	return out
}

// ---- signaling fakes ----

type fakeDialer struct {
	conn    *fakeConnection
	dialErr error
	dialed  []string
}

func (d *fakeDialer) Dial(serverURL string) (signaling.Connection, error) {
	d.dialed = append(d.dialed, serverURL)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.conn, nil
}

type fakeConnection struct {
	emitter *signaling.Emitter
	log     *opLog

	mu       sync.Mutex
	state    signaling.ConnectionState
	addErr   error
	accounts []*fakeAccount
	removed  []string
}

func newFakeConnection(log *opLog) *fakeConnection {
	return &fakeConnection{
		emitter: signaling.NewEmitter(),
		log:     log,
		state:   signaling.ConnectionConnecting,
	}
}

func (c *fakeConnection) State() signaling.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConnection) OnStateChanged(h signaling.ConnectionStateHandler) signaling.Subscription {
	return c.emitter.On("state", func(data interface{}) {
		change := data.([2]signaling.ConnectionState)
		h(change[0], change[1])
	})
}

func (c *fakeConnection) setState(next signaling.ConnectionState) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	c.emitter.Emit("state", [2]signaling.ConnectionState{prev, next})
}

func (c *fakeConnection) AddAccount(opts signaling.AccountOptions, done func(signaling.Account, error)) {
	if c.addErr != nil {
		done(nil, c.addErr)
		return
	}
	acc := newFakeAccount(opts, c.log)
	c.mu.Lock()
	c.accounts = append(c.accounts, acc)
	c.mu.Unlock()
	done(acc, nil)
}

func (c *fakeConnection) RemoveAccount(account signaling.Account, done func(error)) {
	c.mu.Lock()
	c.removed = append(c.removed, account.ID())
	c.mu.Unlock()
	done(nil)
}

func (c *fakeConnection) Close() {
	c.setState(signaling.ConnectionClosed)
}

func (c *fakeConnection) lastAccount() *fakeAccount {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.accounts) == 0 {
		return nil
	}
	return c.accounts[len(c.accounts)-1]
}

type fakeAccount struct {
	emitter *signaling.Emitter
	log     *opLog

	mu          sync.Mutex
	id          string
	display     string
	registers   int
	unregisters int
	calls       []*fakeCall
	conferences []*fakeCall
	nextCallSeq int
	regState    signaling.RegistrationState
}

func newFakeAccount(opts signaling.AccountOptions, log *opLog) *fakeAccount {
	return &fakeAccount{
		emitter: signaling.NewEmitter(),
		log:     log,
		id:      opts.Account,
		display: opts.DisplayName,
	}
}

func (a *fakeAccount) ID() string {
	return a.id
}

func (a *fakeAccount) Register() {
	a.mu.Lock()
	a.registers++
	a.mu.Unlock()
}

func (a *fakeAccount) Unregister() {
	a.mu.Lock()
	a.unregisters++
	a.mu.Unlock()
}

func (a *fakeAccount) Call(target string, stream *media.Stream) signaling.Call {
	call := a.newCall(target, stream)
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
	a.emitter.Emit("outgoing", signaling.Call(call))
	return call
}

func (a *fakeAccount) JoinConference(room string, stream *media.Stream) signaling.Call {
	call := a.newCall(room, stream)
	a.mu.Lock()
	a.conferences = append(a.conferences, call)
	a.mu.Unlock()
	a.emitter.Emit("outgoing", signaling.Call(call))
	return call
}

func (a *fakeAccount) newCall(target string, stream *media.Stream) *fakeCall {
	a.mu.Lock()
	a.nextCallSeq++
	id := fmt.Sprintf("out-%d", a.nextCallSeq)
	a.mu.Unlock()
	call := newFakeCall(id, signaling.Identity{URI: a.id}, signaling.Identity{URI: target}, a.log)
	if stream != nil {
		call.localStreams = append(call.localStreams, stream)
	}
	return call
}

func (a *fakeAccount) setRegistrationState(next signaling.RegistrationState, reason string) {
	a.mu.Lock()
	prev := a.regState
	a.regState = next
	a.mu.Unlock()
	a.emitter.Emit("registration", registrationEvent{prev, next, reason})
}

func (a *fakeAccount) emitIncoming(call signaling.Call, types signaling.MediaTypes) {
	a.emitter.Emit("incoming", incomingEvent{call, types})
}

func (a *fakeAccount) emitMissed(missed signaling.MissedCall) {
	a.emitter.Emit("missed", missed)
}

func (a *fakeAccount) emitInvite(invite signaling.ConferenceInvite) {
	a.emitter.Emit("invite", invite)
}

type registrationEvent struct {
	oldState signaling.RegistrationState
	newState signaling.RegistrationState
	reason   string
}

type incomingEvent struct {
	call  signaling.Call
	types signaling.MediaTypes
}

func (a *fakeAccount) OnRegistrationStateChanged(h signaling.RegistrationStateHandler) signaling.Subscription {
	return a.emitter.On("registration", func(data interface{}) {
		ev := data.(registrationEvent)
		h(ev.oldState, ev.newState, ev.reason)
	})
}

func (a *fakeAccount) OnIncomingCall(h func(signaling.Call, signaling.MediaTypes)) signaling.Subscription {
	return a.emitter.On("incoming", func(data interface{}) {
		ev := data.(incomingEvent)
		h(ev.call, ev.types)
	})
}

func (a *fakeAccount) OnOutgoingCall(h func(signaling.Call)) signaling.Subscription {
	return a.emitter.On("outgoing", func(data interface{}) {
		h(data.(signaling.Call))
	})
}

func (a *fakeAccount) OnMissedCall(h func(signaling.MissedCall)) signaling.Subscription {
	return a.emitter.On("missed", func(data interface{}) {
		h(data.(signaling.MissedCall))
	})
}

func (a *fakeAccount) OnConferenceInvite(h func(signaling.ConferenceInvite)) signaling.Subscription {
	return a.emitter.On("invite", func(data interface{}) {
		h(data.(signaling.ConferenceInvite))
	})
}

type callEvent struct {
	oldState signaling.CallState
	newState signaling.CallState
	reason   string
}

type fakeCall struct {
	emitter *signaling.Emitter
	log     *opLog

	mu            sync.Mutex
	id            string
	local         signaling.Identity
	remote        signaling.Identity
	state         signaling.CallState
	mediaTypes    signaling.MediaTypes
	localStreams  []*media.Stream
	remoteStreams []*media.Stream
	terminated    int
	answered      []*media.Stream
	answerErr     error
	invited       [][]string
}

func newFakeCall(id string, local, remote signaling.Identity, log *opLog) *fakeCall {
	return &fakeCall{
		emitter: signaling.NewEmitter(),
		log:     log,
		id:      id,
		local:   local,
		remote:  remote,
		state:   signaling.CallStateProgress,
	}
}

func (c *fakeCall) ID() string { return c.id }

func (c *fakeCall) LocalIdentity() signaling.Identity { return c.local }

func (c *fakeCall) RemoteIdentity() signaling.Identity { return c.remote }

func (c *fakeCall) State() signaling.CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeCall) MediaTypes() signaling.MediaTypes {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mediaTypes
}

func (c *fakeCall) LocalStreams() []*media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*media.Stream(nil), c.localStreams...)
}

func (c *fakeCall) RemoteStreams() []*media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*media.Stream(nil), c.remoteStreams...)
}

func (c *fakeCall) Participants() []signaling.Participant {
	return nil
}

func (c *fakeCall) OnStateChanged(h signaling.CallStateHandler) signaling.Subscription {
	c.log.add("sub:" + c.id)
	inner := c.emitter.On("state", func(data interface{}) {
		ev := data.(callEvent)
		h(ev.oldState, ev.newState, ev.reason)
	})
	return &loggedSub{log: c.log, op: "unsub:" + c.id, inner: inner}
}

func (c *fakeCall) OnParticipantJoined(h func(signaling.Participant)) signaling.Subscription {
	return c.emitter.On("pjoin", func(data interface{}) { h(data.(signaling.Participant)) })
}

func (c *fakeCall) OnParticipantLeft(h func(signaling.Participant)) signaling.Subscription {
	return c.emitter.On("pleft", func(data interface{}) { h(data.(signaling.Participant)) })
}

func (c *fakeCall) Answer(stream *media.Stream) error {
	c.log.add("answer:" + c.id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answerErr != nil {
		return c.answerErr
	}
	c.answered = append(c.answered, stream)
	return nil
}

func (c *fakeCall) Invite(participants []string) {
	c.mu.Lock()
	c.invited = append(c.invited, participants)
	c.mu.Unlock()
}

func (c *fakeCall) Terminate() {
	c.log.add("terminate:" + c.id)
	c.mu.Lock()
	c.terminated++
	c.mu.Unlock()
}

func (c *fakeCall) emitState(next signaling.CallState, reason string) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	c.emitter.Emit("state", callEvent{prev, next, reason})
}

type loggedSub struct {
	log   *opLog
	op    string
	inner signaling.Subscription
	once  sync.Once
}

func (s *loggedSub) Cancel() {
	s.once.Do(func() {
		s.log.add(s.op)
		s.inner.Cancel()
	})
}

// ---- collaborator fakes ----

type fakeAcquirer struct {
	mu       sync.Mutex
	failErr  error
	requests []media.Constraints
	streams  []*media.Stream
}

func (a *fakeAcquirer) Acquire(ctx context.Context, c media.Constraints) (*media.Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, c)
	if a.failErr != nil {
		return nil, a.failErr
	}
	var tracks []media.Track
	if c.Audio {
		tracks = append(tracks, media.NewRemoteTrack("", media.TrackKindAudio))
	}
	if c.Video {
		tracks = append(tracks, media.NewRemoteTrack("", media.TrackKindVideo))
	}
	stream := media.NewLocalStream(fmt.Sprintf("local-%d", len(a.streams)), tracks...)
	a.streams = append(a.streams, stream)
	return stream, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []string
	saved   [][2]string
	addErr  error
}

func (h *fakeHistory) AddEntry(uri string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.addErr != nil {
		return h.addErr
	}
	h.entries = append(h.entries, uri)
	return nil
}

func (h *fakeHistory) SaveAccount(accountID, password string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, [2]string{accountID, password})
	return nil
}

type notification struct {
	title   string
	body    string
	timeout time.Duration
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []notification
	missedAck     func()
	inviteAck     func()
	inviteRoom    string
}

func (n *fakeNotifier) PostSystemNotification(title, body string, timeout time.Duration) {
	n.mu.Lock()
	n.notifications = append(n.notifications, notification{title, body, timeout})
	n.mu.Unlock()
}

func (n *fakeNotifier) PostMissedCall(from signaling.Identity, onAck func()) {
	n.mu.Lock()
	n.missedAck = onAck
	n.mu.Unlock()
}

func (n *fakeNotifier) PostConferenceInvite(from signaling.Identity, room string, onAck func()) {
	n.mu.Lock()
	n.inviteAck = onAck
	n.inviteRoom = room
	n.mu.Unlock()
}

func (n *fakeNotifier) last() (notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notifications) == 0 {
		return notification{}, false
	}
	return n.notifications[len(n.notifications)-1], true
}

type fakeCues struct {
	log *opLog
}

func (c *fakeCues) PlayOutboundRing() { c.log.add("cue:outbound") }
func (c *fakeCues) PlayInboundRing()  { c.log.add("cue:inbound") }
func (c *fakeCues) StopRings()        { c.log.add("cue:stop") }
func (c *fakeCues) PlayHangup()       { c.log.add("cue:hangup") }

type fakeNav struct {
	mu         sync.Mutex
	paths      []string
	onNavigate func(path string)
}

func (n *fakeNav) Navigate(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	hook := n.onNavigate
	n.mu.Unlock()
	if hook != nil {
		hook(path)
	}
}

func (n *fakeNav) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

// ---- fixture ----

type fixture struct {
	ctrl     *Controller
	dialer   *fakeDialer
	conn     *fakeConnection
	acquirer *fakeAcquirer
	history  *fakeHistory
	notifier *fakeNotifier
	cues     *fakeCues
	nav      *fakeNav
	log      *opLog
}

func newFixture() *fixture {
	log := &opLog{}
	f := &fixture{
		dialer:   &fakeDialer{},
		acquirer: &fakeAcquirer{},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
		cues:     &fakeCues{log: log},
		nav:      &fakeNav{},
		log:      log,
	}
	f.conn = newFakeConnection(log)
	f.dialer.conn = f.conn

	f.ctrl = New(Deps{
		Config:   blinksdk.DefaultConfig(),
		Dialer:   f.dialer,
		Media:    f.acquirer,
		History:  f.history,
		Notifier: f.notifier,
		Cues:     f.cues,
		Nav:      f.nav,
		Logger:   zerolog.Nop(),
	})
	// Run async work inline so tests are deterministic.
	f.ctrl.spawn = func(fn func()) { fn() }
	return f
}

// login drives the fixture to a registered normal session.
func (f *fixture) login() *fakeAccount {
	f.ctrl.StartNormalLogin("alice@sip2sip.info", "secret")
	f.conn.setState(signaling.ConnectionReady)
	acc := f.conn.lastAccount()
	acc.setRegistrationState(signaling.RegistrationRegistered, "")
	return acc
}

// currentFakeCall digs the controller's current call out as a fake.
func (f *fixture) currentFakeCall() *fakeCall {
	snap := f.ctrl.Snapshot()
	if snap.CurrentCall == nil {
		return nil
	}
	return snap.CurrentCall.(*fakeCall)
}
