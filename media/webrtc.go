/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package media

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
)

// captureTrack wraps a pion local track with the mute/stop bookkeeping the
// Track interface requires.
type captureTrack struct {
	mu      sync.Mutex
	local   *webrtc.TrackLocalStaticSample
	kind    TrackKind
	enabled bool
	stopped bool
}

func (t *captureTrack) ID() string {
	return t.local.ID()
}

func (t *captureTrack) Kind() TrackKind {
	return t.kind
}

func (t *captureTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *captureTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *captureTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.enabled = false
	t.mu.Unlock()
}

// Sample returns the underlying pion track for feeding into a peer
// connection.
func (t *captureTrack) Sample() *webrtc.TrackLocalStaticSample {
	return t.local
}

// remoteTrack is a descriptor for a track advertised by the remote party.
// The transport updates Enabled as mute state changes arrive.
type remoteTrack struct {
	mu      sync.Mutex
	id      string
	kind    TrackKind
	enabled bool
}

// NewRemoteTrack builds a remote track descriptor.
func NewRemoteTrack(id string, kind TrackKind) Track {
	if id == "" {
		id = uuid.NewString()
	}
	return &remoteTrack{id: id, kind: kind, enabled: true}
}

func (t *remoteTrack) ID() string      { return t.id }
func (t *remoteTrack) Kind() TrackKind { return t.kind }

func (t *remoteTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *remoteTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *remoteTrack) Stop() {
	t.SetEnabled(false)
}

// CaptureAcquirer acquires local capture streams backed by pion static
// sample tracks.
type CaptureAcquirer struct {
	logger zerolog.Logger
}

// NewCaptureAcquirer returns an Acquirer producing pion-backed streams.
func NewCaptureAcquirer(logger zerolog.Logger) *CaptureAcquirer {
	return &CaptureAcquirer{logger: logger.With().Str("module", "media").Logger()}
}

// Acquire builds a local stream for the given constraints.
func (a *CaptureAcquirer) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &blinksdk.MediaError{Constraint: c.describe(), Err: err}
	}
	if !c.Audio && !c.Video {
		return nil, &blinksdk.MediaError{Constraint: c.describe()}
	}

	streamID := uuid.NewString()
	var tracks []Track

	if c.Audio {
		t, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio-"+streamID, streamID)
		if err != nil {
			return nil, &blinksdk.MediaError{Constraint: c.describe(), Err: err}
		}
		tracks = append(tracks, &captureTrack{local: t, kind: TrackKindAudio, enabled: true})
	}

	if c.Video {
		t, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video-"+streamID, streamID)
		if err != nil {
			return nil, &blinksdk.MediaError{Constraint: c.describe(), Err: err}
		}
		tracks = append(tracks, &captureTrack{local: t, kind: TrackKindVideo, enabled: true})
	}

	a.logger.Debug().
		Str("stream", streamID).
		Bool("audio", c.Audio).
		Bool("video", c.Video).
		Msg("local media acquired")

	return NewLocalStream(streamID, tracks...), nil
}

func (c Constraints) describe() string {
	switch {
	case c.Audio && c.Video:
		return "audio+video"
	case c.Audio:
		return "audio"
	case c.Video:
		return "video"
	default:
		return "none"
	}
}
