/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"sync"

	"github.com/blinkrtc/blink-go-sdk/media"
)

// Emitter event keys for calls and participants.
const (
	eventCallState         = "callStateChanged"
	eventParticipantJoined = "participantJoined"
	eventParticipantLeft   = "participantLeft"
	eventParticipantState  = "participantStateChanged"
)

type callStateChange struct {
	oldState CallState
	newState CallState
	reason   string
}

type participantStateChange struct {
	oldState ParticipantState
	newState ParticipantState
}

// wsCall is a call session carried over the websocket connection. The same
// type backs point-to-point calls and conference (video room) sessions.
type wsCall struct {
	conn    *wsConnection
	emitter *Emitter

	id         string
	local      Identity
	remote     Identity
	conference bool

	mu            sync.Mutex
	state         CallState
	mediaTypes    MediaTypes
	localStreams  []*media.Stream
	remoteStreams []*media.Stream
	participants  []Participant
}

func newWSCall(conn *wsConnection, id string, local, remote Identity, conference bool) *wsCall {
	return &wsCall{
		conn:       conn,
		emitter:    NewEmitter(),
		id:         id,
		local:      local,
		remote:     remote,
		conference: conference,
		state:      CallStateProgress,
	}
}

func (c *wsCall) ID() string               { return c.id }
func (c *wsCall) LocalIdentity() Identity  { return c.local }
func (c *wsCall) RemoteIdentity() Identity { return c.remote }

func (c *wsCall) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *wsCall) MediaTypes() MediaTypes {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mediaTypes
}

func (c *wsCall) LocalStreams() []*media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*media.Stream, len(c.localStreams))
	copy(out, c.localStreams)
	return out
}

func (c *wsCall) RemoteStreams() []*media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*media.Stream, len(c.remoteStreams))
	copy(out, c.remoteStreams)
	return out
}

func (c *wsCall) Participants() []Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Participant, len(c.participants))
	copy(out, c.participants)
	return out
}

func (c *wsCall) OnStateChanged(h CallStateHandler) Subscription {
	return c.emitter.On(eventCallState, func(data interface{}) {
		change := data.(callStateChange)
		h(change.oldState, change.newState, change.reason)
	})
}

func (c *wsCall) OnParticipantJoined(h func(Participant)) Subscription {
	return c.emitter.On(eventParticipantJoined, func(data interface{}) {
		h(data.(Participant))
	})
}

func (c *wsCall) OnParticipantLeft(h func(Participant)) Subscription {
	return c.emitter.On(eventParticipantLeft, func(data interface{}) {
		h(data.(Participant))
	})
}

func (c *wsCall) Answer(stream *media.Stream) error {
	c.addLocalStream(stream)
	return c.conn.request(&wsMessage{Type: msgSessionAnswer, Session: c.id})
}

func (c *wsCall) Invite(participants []string) {
	if len(participants) == 0 {
		return
	}
	c.conn.send(&wsMessage{
		Type:         msgRoomInvite,
		Session:      c.id,
		Participants: participants,
	})
}

func (c *wsCall) Terminate() {
	c.conn.send(&wsMessage{Type: msgSessionEnd, Session: c.id})
}

func (c *wsCall) addLocalStream(stream *media.Stream) {
	if stream == nil {
		return
	}
	c.mu.Lock()
	c.localStreams = append(c.localStreams, stream)
	c.mu.Unlock()
}

func (c *wsCall) setIncoming(types MediaTypes) {
	c.mu.Lock()
	c.mediaTypes = types
	c.mu.Unlock()
}

// handleEvent routes a session-event or videoroom-event envelope.
func (c *wsCall) handleEvent(msg *wsMessage) {
	switch msg.Event {
	case evState:
		if msg.Data == nil {
			return
		}
		next := CallState(msg.Data.State)
		c.mu.Lock()
		old := c.state
		c.state = next
		c.mu.Unlock()
		if next == CallStateTerminated {
			c.conn.dropCall(c.id)
			c.deactivateRemoteStreams()
		}
		if old != next {
			c.emitter.Emit(eventCallState, callStateChange{
				oldState: old,
				newState: next,
				reason:   msg.Data.Reason,
			})
		}

	case evParticipantJoined:
		if msg.Data == nil || msg.Data.Participant == nil {
			return
		}
		p := newWSParticipant(c, msg.Data.Participant)
		c.mu.Lock()
		c.participants = append(c.participants, p)
		c.mu.Unlock()
		c.emitter.Emit(eventParticipantJoined, Participant(p))

	case evParticipantLeft:
		if msg.Data == nil || msg.Data.Participant == nil {
			return
		}
		if p := c.removeParticipant(msg.Data.Participant.ID); p != nil {
			c.emitter.Emit(eventParticipantLeft, p)
		}

	case evParticipantState:
		if msg.Data == nil || msg.Data.Participant == nil {
			return
		}
		c.mu.Lock()
		var target *wsParticipant
		for _, p := range c.participants {
			if wp, ok := p.(*wsParticipant); ok && wp.id == msg.Data.Participant.ID {
				target = wp
				break
			}
		}
		c.mu.Unlock()
		if target != nil {
			target.setState(ParticipantState(msg.Data.Participant.State))
		}
	}
}

func (c *wsCall) removeParticipant(id string) Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.participants {
		if p.ID() == id {
			c.participants = append(c.participants[:i], c.participants[i+1:]...)
			return p
		}
	}
	return nil
}

func (c *wsCall) deactivateRemoteStreams() {
	c.mu.Lock()
	streams := make([]*media.Stream, len(c.remoteStreams))
	copy(streams, c.remoteStreams)
	c.mu.Unlock()
	for _, s := range streams {
		s.Deactivate()
	}
}

// wsParticipant is a remote conference member.
type wsParticipant struct {
	call    *wsCall
	emitter *Emitter

	id       string
	identity Identity

	mu      sync.Mutex
	state   ParticipantState
	streams []*media.Stream
}

func newWSParticipant(call *wsCall, info *wsParticipantInfo) *wsParticipant {
	p := &wsParticipant{
		call:     call,
		emitter:  NewEmitter(),
		id:       info.ID,
		identity: Identity{URI: info.URI, DisplayName: info.DisplayName},
		state:    ParticipantState(info.State),
	}
	var tracks []media.Track
	if info.Audio {
		tracks = append(tracks, media.NewRemoteTrack(info.ID+"-audio", media.TrackKindAudio))
	}
	if info.Video {
		tracks = append(tracks, media.NewRemoteTrack(info.ID+"-video", media.TrackKindVideo))
	}
	if len(tracks) > 0 {
		p.streams = []*media.Stream{media.NewRemoteStream(info.ID, tracks...)}
	}
	return p
}

func (p *wsParticipant) ID() string {
	return p.id
}

func (p *wsParticipant) Identity() Identity {
	return p.identity
}

func (p *wsParticipant) State() ParticipantState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *wsParticipant) Streams() []*media.Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*media.Stream, len(p.streams))
	copy(out, p.streams)
	return out
}

func (p *wsParticipant) OnStateChanged(h ParticipantStateHandler) Subscription {
	return p.emitter.On(eventParticipantState, func(data interface{}) {
		change := data.(participantStateChange)
		h(change.oldState, change.newState)
	})
}

func (p *wsParticipant) Attach() {
	p.call.conn.send(&wsMessage{
		Type:      msgFeedAttach,
		Session:   p.call.id,
		Publisher: p.id,
	})
}

func (p *wsParticipant) Detach() {
	p.call.conn.send(&wsMessage{
		Type:      msgFeedDetach,
		Session:   p.call.id,
		Publisher: p.id,
	})
}

func (p *wsParticipant) setState(next ParticipantState) {
	p.mu.Lock()
	old := p.state
	p.state = next
	p.mu.Unlock()
	if old != next {
		p.emitter.Emit(eventParticipantState, participantStateChange{oldState: old, newState: next})
	}
}
