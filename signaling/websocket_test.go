/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// gateway is an in-process fake of the websocket gateway. It greets every
// connection with ready, acknowledges every transaction, and records the
// requests it saw.
type gateway struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
	msgs chan wsMessage
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	gw := &gateway{msgs: make(chan wsMessage, 64)}
	gw.srv = httptest.NewServer(http.HandlerFunc(gw.handle))
	t.Cleanup(gw.srv.Close)
	return gw
}

func (g *gateway) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	g.push(wsMessage{Type: msgReady})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Transaction != "" {
			g.push(wsMessage{Type: msgAck, Transaction: msg.Transaction})
		}
		g.msgs <- msg
	}
}

// push writes a message to the connected client.
func (g *gateway) push(msg wsMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		_ = g.conn.WriteJSON(msg)
	}
}

func (g *gateway) url() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

// expect waits for the next recorded request of the given type, skipping
// others.
func (g *gateway) expect(t *testing.T, msgType string) wsMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-g.msgs:
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("gateway never received %q", msgType)
			return wsMessage{}
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func dialGateway(t *testing.T, gw *gateway) Connection {
	t.Helper()
	dialer := NewWSDialer(&WSConfig{
		HandshakeTimeout: time.Second,
		PingInterval:     time.Minute,
		PongTimeout:      time.Second,
		RequestTimeout:   2 * time.Second,
		BackoffTimeReset: 20 * time.Millisecond,
		BackoffTimeMax:   100 * time.Millisecond,
	}, zerolog.Nop())

	conn, err := dialer.Dial(gw.url())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(conn.Close)
	waitFor(t, "ready state", func() bool { return conn.State() == ConnectionReady })
	return conn
}

// addAccount binds a test account and waits for the gateway exchange.
func addAccount(t *testing.T, gw *gateway, conn Connection, id string) Account {
	t.Helper()
	done := make(chan Account, 1)
	conn.AddAccount(AccountOptions{Account: id, Password: "secret"}, func(acc Account, err error) {
		if err != nil {
			t.Errorf("account binding failed: %v", err)
		}
		done <- acc
	})
	gw.expect(t, msgAccountAdd)

	select {
	case acc := <-done:
		return acc
	case <-time.After(2 * time.Second):
		t.Fatal("account binding never completed")
		return nil
	}
}

func TestDialValidation(t *testing.T) {
	dialer := NewWSDialer(nil, zerolog.Nop())

	if _, err := dialer.Dial("https://gateway.example.com/ws"); err == nil {
		t.Errorf("https scheme accepted")
	}
	if _, err := dialer.Dial("://bad"); err == nil {
		t.Errorf("malformed URL accepted")
	}
}

func TestConnectAndClose(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)

	conn.Close()
	waitFor(t, "closed state", func() bool { return conn.State() == ConnectionClosed })
}

func TestAccountBindAndRegister(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)

	done := make(chan Account, 1)
	conn.AddAccount(AccountOptions{Account: "alice@sip2sip.info", Password: "secret", DisplayName: "Alice"},
		func(acc Account, err error) {
			if err != nil {
				t.Errorf("binding failed: %v", err)
			}
			done <- acc
		})

	add := gw.expect(t, msgAccountAdd)
	if add.Account != "alice@sip2sip.info" || add.Password != "secret" || add.DisplayName != "Alice" {
		t.Errorf("account-add = %+v", add)
	}
	acc := <-done

	acc.Register()
	reg := gw.expect(t, msgRegister)
	if reg.Account != acc.ID() {
		t.Errorf("account-register for %q", reg.Account)
	}

	states := make(chan RegistrationState, 4)
	acc.OnRegistrationStateChanged(func(oldState, newState RegistrationState, reason string) {
		states <- newState
	})
	gw.push(wsMessage{
		Type:    msgAccountEvent,
		Account: acc.ID(),
		Event:   evRegistrationState,
		Data:    &wsEventData{State: string(RegistrationRegistered)},
	})

	select {
	case got := <-states:
		if got != RegistrationRegistered {
			t.Errorf("registration state = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("registration event never delivered")
	}

	removeDone := make(chan error, 1)
	conn.RemoveAccount(acc, func(err error) { removeDone <- err })
	gw.expect(t, msgAccountRemove)
	if err := <-removeDone; err != nil {
		t.Errorf("remove: %v", err)
	}
}

func TestOutgoingCall(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)
	acc := addAccount(t, gw, conn, "alice@sip2sip.info")

	call := acc.Call("bob@sip2sip.info", nil)

	create := gw.expect(t, msgSessionCreate)
	if create.URI != "bob@sip2sip.info" || create.Session != call.ID() {
		t.Errorf("session-create = %+v", create)
	}
	if call.State() != CallStateProgress {
		t.Errorf("initial state = %q", call.State())
	}

	states := make(chan callStateChange, 4)
	call.OnStateChanged(func(oldState, newState CallState, reason string) {
		states <- callStateChange{oldState, newState, reason}
	})

	gw.push(wsMessage{
		Type:    msgSessionEvent,
		Session: call.ID(),
		Event:   evState,
		Data:    &wsEventData{State: string(CallStateAccepted)},
	})
	gw.push(wsMessage{
		Type:    msgSessionEvent,
		Session: call.ID(),
		Event:   evState,
		Data:    &wsEventData{State: string(CallStateTerminated), Reason: "200 OK"},
	})

	want := []callStateChange{
		{CallStateProgress, CallStateAccepted, ""},
		{CallStateAccepted, CallStateTerminated, "200 OK"},
	}
	for _, w := range want {
		select {
		case got := <-states:
			if got != w {
				t.Errorf("state change = %+v, want %+v", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("state change %+v never delivered", w)
		}
	}
}

func TestIncomingSession(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)
	acc := addAccount(t, gw, conn, "alice@sip2sip.info")

	incoming := make(chan incomingCall, 1)
	acc.OnIncomingCall(func(call Call, types MediaTypes) {
		incoming <- incomingCall{call: call, types: types}
	})

	gw.push(wsMessage{
		Type:    msgAccountEvent,
		Account: acc.ID(),
		Event:   evIncomingSession,
		Session: "sess-1",
		Data: &wsEventData{
			Originator: &wsIdentity{URI: "carol@sip2sip.info", DisplayName: "Carol"},
			Audio:      true,
		},
	})

	var in incomingCall
	select {
	case in = <-incoming:
	case <-time.After(2 * time.Second):
		t.Fatal("incoming session never delivered")
	}

	if in.call.ID() != "sess-1" {
		t.Errorf("call id = %q", in.call.ID())
	}
	if in.call.RemoteIdentity().String() != "Carol" {
		t.Errorf("remote identity = %+v", in.call.RemoteIdentity())
	}
	if !in.types.Audio || in.types.Video {
		t.Errorf("media types = %+v, want audio only", in.types)
	}

	if err := in.call.Answer(nil); err != nil {
		t.Errorf("answer: %v", err)
	}
	answer := gw.expect(t, msgSessionAnswer)
	if answer.Session != "sess-1" {
		t.Errorf("session-answer = %+v", answer)
	}
}

func TestMissedSessionAndInvite(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)
	acc := addAccount(t, gw, conn, "alice@sip2sip.info")

	missed := make(chan MissedCall, 1)
	acc.OnMissedCall(func(m MissedCall) { missed <- m })
	invites := make(chan ConferenceInvite, 1)
	acc.OnConferenceInvite(func(inv ConferenceInvite) { invites <- inv })

	gw.push(wsMessage{
		Type:    msgAccountEvent,
		Account: acc.ID(),
		Event:   evMissedSession,
		Data:    &wsEventData{Originator: &wsIdentity{URI: "carol@sip2sip.info"}},
	})
	gw.push(wsMessage{
		Type:    msgAccountEvent,
		Account: acc.ID(),
		Event:   evConferenceInvite,
		Data: &wsEventData{
			Originator: &wsIdentity{URI: "carol@sip2sip.info"},
			Room:       "standup@conference.sip2sip.info",
		},
	})

	select {
	case m := <-missed:
		if m.Originator.URI != "carol@sip2sip.info" {
			t.Errorf("missed call = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("missed call never delivered")
	}

	select {
	case inv := <-invites:
		if inv.Room != "standup@conference.sip2sip.info" {
			t.Errorf("invite = %+v", inv)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("conference invite never delivered")
	}
}

func TestConferenceParticipants(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)
	acc := addAccount(t, gw, conn, "alice@sip2sip.info")

	call := acc.JoinConference("standup@conference.sip2sip.info", nil)
	join := gw.expect(t, msgRoomJoin)
	if join.URI != "standup@conference.sip2sip.info" {
		t.Errorf("videoroom-join = %+v", join)
	}

	joined := make(chan Participant, 1)
	call.OnParticipantJoined(func(p Participant) { joined <- p })
	left := make(chan Participant, 1)
	call.OnParticipantLeft(func(p Participant) { left <- p })

	gw.push(wsMessage{
		Type:    msgRoomEvent,
		Session: call.ID(),
		Event:   evParticipantJoined,
		Data: &wsEventData{Participant: &wsParticipantInfo{
			ID:    "feed-1",
			URI:   "carol@sip2sip.info",
			State: string(ParticipantStateProgress),
			Audio: true,
			Video: true,
		}},
	})

	var p Participant
	select {
	case p = <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("participant join never delivered")
	}
	if p.ID() != "feed-1" || p.State() != ParticipantStateProgress {
		t.Errorf("participant = %q %q", p.ID(), p.State())
	}
	if streams := p.Streams(); len(streams) != 1 || len(streams[0].VideoTracks()) != 1 {
		t.Errorf("participant streams = %+v", streams)
	}
	if got := call.Participants(); len(got) != 1 {
		t.Errorf("roster size = %d", len(got))
	}

	p.Attach()
	attach := gw.expect(t, msgFeedAttach)
	if attach.Publisher != "feed-1" || attach.Session != call.ID() {
		t.Errorf("feed-attach = %+v", attach)
	}

	pstates := make(chan ParticipantState, 1)
	p.OnStateChanged(func(oldState, newState ParticipantState) { pstates <- newState })
	gw.push(wsMessage{
		Type:    msgRoomEvent,
		Session: call.ID(),
		Event:   evParticipantState,
		Data: &wsEventData{Participant: &wsParticipantInfo{
			ID:    "feed-1",
			State: string(ParticipantStateEstablished),
		}},
	})
	select {
	case got := <-pstates:
		if got != ParticipantStateEstablished {
			t.Errorf("participant state = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("participant state never delivered")
	}

	gw.push(wsMessage{
		Type:    msgRoomEvent,
		Session: call.ID(),
		Event:   evParticipantLeft,
		Data:    &wsEventData{Participant: &wsParticipantInfo{ID: "feed-1"}},
	})
	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("participant leave never delivered")
	}
	if got := call.Participants(); len(got) != 0 {
		t.Errorf("roster not emptied: %d", len(got))
	}
}

func TestTerminatedCallDeactivatesRemoteStreams(t *testing.T) {
	gw := newGateway(t)
	conn := dialGateway(t, gw)
	acc := addAccount(t, gw, conn, "alice@sip2sip.info")

	call := acc.Call("bob@sip2sip.info", nil)
	gw.expect(t, msgSessionCreate)

	terminated := make(chan struct{})
	call.OnStateChanged(func(oldState, newState CallState, reason string) {
		if newState == CallStateTerminated {
			close(terminated)
		}
	})
	gw.push(wsMessage{
		Type:    msgSessionEvent,
		Session: call.ID(),
		Event:   evState,
		Data:    &wsEventData{State: string(CallStateTerminated), Reason: "487 Request Terminated"},
	})

	select {
	case <-terminated:
	case <-time.After(2 * time.Second):
		t.Fatal("termination never delivered")
	}
	for _, s := range call.RemoteStreams() {
		if s.Active() {
			t.Errorf("remote stream %s still active after termination", s.ID())
		}
	}
}
