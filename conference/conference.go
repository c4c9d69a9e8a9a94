/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package conference manages the in-conference experience: the participant
// roster in arrival order, the large-video selection, active-speaker
// rotation, and the overlay/duration timers.
package conference

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/media"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// Cues plays the roster tones.
type Cues interface {
	PlayJoined()
	PlayLeft()
}

// LargeVideo describes the stream shown in the main area.
type LargeVideo struct {
	Stream   *media.Stream
	Identity signaling.Identity
	IsLocal  bool
	HasVideo bool
}

// VideoItem is a selectable video source.
type VideoItem struct {
	Stream   *media.Stream
	Identity signaling.Identity
}

// Deps are the collaborators injected into an Engine.
type Deps struct {
	Cues   Cues
	Logger zerolog.Logger

	// Hangup delegates call termination to the session layer.
	Hangup func()

	// OnTick receives the elapsed call duration.
	OnTick func(elapsed time.Duration)

	// Now is the clock; tests inject a fake one.
	Now func() time.Time

	// RotateCooldown is the minimum spacing between active-speaker
	// rotations. OverlayTimeout hides the controls overlay;
	// TickInterval drives the duration callback. Zero values select
	// the defaults.
	RotateCooldown time.Duration
	OverlayTimeout time.Duration
	TickInterval   time.Duration
}

const (
	defaultRotateCooldown = 5 * time.Second
	defaultOverlayTimeout = 4 * time.Second
	defaultTickInterval   = 300 * time.Millisecond
)

// Engine drives one conference call.
type Engine struct {
	deps   Deps
	logger zerolog.Logger

	mu             sync.Mutex
	call           signaling.Call
	roster         []signaling.Participant
	participantSub map[string]signaling.Subscription
	callSubs       []signaling.Subscription
	large          LargeVideo
	autoRotate     bool
	rotateUntil    time.Time
	overlayShown   bool
	overlayTimer   *time.Timer
	startedAt      time.Time
	tickStop       chan struct{}
	audioMuted     bool
	videoMuted     bool
	active         bool
}

// New creates an Engine. Zero durations in deps select the defaults.
func New(deps Deps) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RotateCooldown == 0 {
		deps.RotateCooldown = defaultRotateCooldown
	}
	if deps.OverlayTimeout == 0 {
		deps.OverlayTimeout = defaultOverlayTimeout
	}
	if deps.TickInterval == 0 {
		deps.TickInterval = defaultTickInterval
	}
	return &Engine{
		deps:           deps,
		logger:         deps.Logger.With().Str("module", "conference").Logger(),
		participantSub: make(map[string]signaling.Subscription),
		autoRotate:     true,
	}
}

// Join adopts the conference call: snapshots the roster in arrival order,
// attaches every present participant, forwards the pending invite list,
// and starts the duration ticker. With an empty roster the large video
// defaults to the local stream.
func (e *Engine) Join(call signaling.Call, invite []string) {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return
	}
	e.active = true
	e.call = call
	e.autoRotate = true
	e.rotateUntil = time.Time{}
	e.startedAt = e.deps.Now()

	for _, p := range call.Participants() {
		e.addParticipantLocked(p, false)
	}

	e.callSubs = append(e.callSubs,
		call.OnParticipantJoined(e.participantJoined),
		call.OnParticipantLeft(e.participantLeft),
	)

	empty := len(e.roster) == 0
	e.mu.Unlock()

	if len(invite) > 0 {
		call.Invite(invite)
	}
	if empty {
		e.selectLocalDefault()
	}

	e.startTicker()
	e.ShowOverlay()
	e.logger.Debug().Str("room", call.RemoteIdentity().URI).Msg("joined conference")
}

// Roster returns the participants in arrival order.
func (e *Engine) Roster() []signaling.Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]signaling.Participant, len(e.roster))
	copy(out, e.roster)
	return out
}

// LargeVideo returns the current main-area selection.
func (e *Engine) LargeVideo() LargeVideo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.large
}

// AutoRotate reports whether active-speaker rotation is enabled.
func (e *Engine) AutoRotate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoRotate
}

// SetAutoRotate re-enables (or disables) active-speaker rotation.
func (e *Engine) SetAutoRotate(enabled bool) {
	e.mu.Lock()
	e.autoRotate = enabled
	e.mu.Unlock()
}

// SelectVideo is a manual selection. It pins the chosen stream and turns
// auto-rotation off.
func (e *Engine) SelectVideo(item VideoItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoRotate = false
	e.selectLocked(item)
}

// ParticipantActive flags item's owner as the active speaker. Rotation
// honors the cooldown window and does nothing while auto-rotate is off.
func (e *Engine) ParticipantActive(item VideoItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.autoRotate {
		return
	}
	now := e.deps.Now()
	if now.Before(e.rotateUntil) {
		return
	}
	if e.selectLocked(item) {
		e.rotateUntil = now.Add(e.deps.RotateCooldown)
	}
}

// selectLocked applies a selection, reporting whether it changed anything.
func (e *Engine) selectLocked(item VideoItem) bool {
	if item.Stream == nil {
		e.large = LargeVideo{}
		return false
	}
	if item.Stream == e.large.Stream {
		return false
	}
	e.large = LargeVideo{
		Stream:   item.Stream,
		Identity: item.Identity,
		IsLocal:  item.Stream == e.localStream(),
		HasVideo: len(item.Stream.VideoTracks()) > 0,
	}
	return true
}

// MaybeSwitchLargeVideo re-evaluates the main-area selection. It is a
// no-op while the displayed stream is still valid: remote, active, and
// present. Otherwise the first established participant with an active
// video-bearing stream wins, in roster order, falling back to the local
// stream. Running it twice in a row never changes the outcome.
func (e *Engine) MaybeSwitchLargeVideo() {
	e.mu.Lock()
	defer e.mu.Unlock()

	stale := e.large.Stream == nil || !e.large.Stream.Active() || e.large.IsLocal
	if !stale {
		return
	}

	for _, p := range e.roster {
		if p.State() != signaling.ParticipantStateEstablished {
			continue
		}
		streams := p.Streams()
		if len(streams) == 0 {
			continue
		}
		s := streams[0]
		if !s.Active() || len(s.VideoTracks()) == 0 {
			continue
		}
		e.selectLocked(VideoItem{Stream: s, Identity: p.Identity()})
		return
	}

	e.selectLocked(VideoItem{Stream: e.localStream(), Identity: e.localIdentity()})
}

// ShowOverlay makes the controls overlay visible and rearms its hide
// timer, cancelling any timer already pending.
func (e *Engine) ShowOverlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlayShown = true
	if e.overlayTimer != nil {
		e.overlayTimer.Stop()
	}
	e.overlayTimer = time.AfterFunc(e.deps.OverlayTimeout, func() {
		e.mu.Lock()
		e.overlayShown = false
		e.mu.Unlock()
	})
}

// OverlayVisible reports whether the controls overlay is shown.
func (e *Engine) OverlayVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlayShown
}

// Duration returns the elapsed conference time.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startedAt.IsZero() {
		return 0
	}
	return e.deps.Now().Sub(e.startedAt)
}

// ToggleAudioMute flips the enabled flag on local audio tracks and
// returns the new muted state.
func (e *Engine) ToggleAudioMute() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audioMuted = !e.audioMuted
	if s := e.localStream(); s != nil {
		for _, t := range s.AudioTracks() {
			t.SetEnabled(!e.audioMuted)
		}
	}
	return e.audioMuted
}

// ToggleVideoMute flips the enabled flag on local video tracks and
// returns the new muted state.
func (e *Engine) ToggleVideoMute() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.videoMuted = !e.videoMuted
	if s := e.localStream(); s != nil {
		for _, t := range s.VideoTracks() {
			t.SetEnabled(!e.videoMuted)
		}
	}
	return e.videoMuted
}

// Invite asks the focus to bring in more participants.
func (e *Engine) Invite(participants []string) {
	e.mu.Lock()
	call := e.call
	e.mu.Unlock()
	if call != nil {
		call.Invite(participants)
	}
}

// Hangup detaches every participant, stops the timers, and delegates call
// termination to the session layer.
func (e *Engine) Hangup() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false

	for _, p := range e.roster {
		p.Detach()
	}
	for _, sub := range e.participantSub {
		sub.Cancel()
	}
	e.participantSub = make(map[string]signaling.Subscription)
	for _, sub := range e.callSubs {
		sub.Cancel()
	}
	e.callSubs = nil
	e.roster = nil
	e.large = LargeVideo{}
	e.call = nil

	if e.overlayTimer != nil {
		e.overlayTimer.Stop()
		e.overlayTimer = nil
	}
	tickStop := e.tickStop
	e.tickStop = nil
	e.mu.Unlock()

	if tickStop != nil {
		close(tickStop)
	}
	if e.deps.Hangup != nil {
		e.deps.Hangup()
	}
}

func (e *Engine) participantJoined(p signaling.Participant) {
	e.mu.Lock()
	e.addParticipantLocked(p, true)
	e.mu.Unlock()
	e.MaybeSwitchLargeVideo()
}

func (e *Engine) participantLeft(p signaling.Participant) {
	e.mu.Lock()
	removed := e.removeParticipantLocked(p.ID())
	e.mu.Unlock()
	if !removed {
		return
	}
	p.Detach()
	e.deps.Cues.PlayLeft()
	e.logger.Debug().Str("participant", p.Identity().URI).Msg("participant left")
	e.MaybeSwitchLargeVideo()
}

// addParticipantLocked appends p to the roster, attaches its media and
// watches its state. Duplicate joins are ignored.
func (e *Engine) addParticipantLocked(p signaling.Participant, tone bool) {
	id := p.ID()
	if _, ok := e.participantSub[id]; ok {
		return
	}
	e.roster = append(e.roster, p)
	e.participantSub[id] = p.OnStateChanged(func(oldState, newState signaling.ParticipantState) {
		e.MaybeSwitchLargeVideo()
	})
	p.Attach()
	if tone {
		e.deps.Cues.PlayJoined()
		e.logger.Debug().Str("participant", p.Identity().URI).Msg("participant joined")
	}
}

// removeParticipantLocked drops a participant; unknown ids are a no-op.
func (e *Engine) removeParticipantLocked(id string) bool {
	sub, ok := e.participantSub[id]
	if !ok {
		return false
	}
	sub.Cancel()
	delete(e.participantSub, id)
	for i, p := range e.roster {
		if p.ID() == id {
			e.roster = append(e.roster[:i], e.roster[i+1:]...)
			break
		}
	}
	return true
}

func (e *Engine) selectLocalDefault() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.roster) > 0 {
		return
	}
	e.selectLocked(VideoItem{Stream: e.localStream(), Identity: e.localIdentity()})
}

func (e *Engine) localStream() *media.Stream {
	if e.call == nil {
		return nil
	}
	streams := e.call.LocalStreams()
	if len(streams) == 0 {
		return nil
	}
	return streams[0]
}

func (e *Engine) localIdentity() signaling.Identity {
	if e.call == nil {
		return signaling.Identity{}
	}
	return e.call.LocalIdentity()
}

func (e *Engine) startTicker() {
	stop := make(chan struct{})
	e.mu.Lock()
	e.tickStop = stop
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(e.deps.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if e.deps.OnTick != nil {
					e.deps.OnTick(e.Duration())
				}
			case <-stop:
				return
			}
		}
	}()
}
