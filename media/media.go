/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package media provides the local capture abstraction consumed by the
// session and conference layers. Streams borrowed from the signaling
// transport (remote participant media) use the same types but stay owned
// by the transport.
package media

import (
	"context"
	"sync"
)

// TrackKind distinguishes audio from video tracks.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Track is a single audio or video track inside a Stream.
type Track interface {
	ID() string
	Kind() TrackKind

	// Enabled reports whether the track is producing media. Disabled
	// tracks stay attached but emit silence/black (mute semantics).
	Enabled() bool
	SetEnabled(enabled bool)

	// Stop releases the underlying device or remote binding.
	Stop()
}

// Stream is an ordered collection of tracks. A stream is active until
// closed; remote streams are deactivated by the transport when the sender
// stops them.
type Stream struct {
	mu     sync.RWMutex
	id     string
	local  bool
	active bool
	tracks []Track
}

// NewLocalStream builds a stream around locally captured tracks.
func NewLocalStream(id string, tracks ...Track) *Stream {
	return &Stream{id: id, local: true, active: true, tracks: tracks}
}

// NewRemoteStream builds a descriptor stream for media advertised by a
// remote party.
func NewRemoteStream(id string, tracks ...Track) *Stream {
	return &Stream{id: id, active: true, tracks: tracks}
}

// ID returns the stream identifier.
func (s *Stream) ID() string {
	return s.id
}

// Local reports whether the stream was captured on this client.
func (s *Stream) Local() bool {
	return s.local
}

// Active reports whether the stream is still live.
func (s *Stream) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Deactivate marks the stream as no longer live without stopping tracks.
// Used by the transport when the remote party stops sending.
func (s *Stream) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Tracks returns a copy of the track list.
func (s *Stream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// AudioTracks returns the audio tracks in order.
func (s *Stream) AudioTracks() []Track {
	return s.tracksOfKind(TrackKindAudio)
}

// VideoTracks returns the video tracks in order.
func (s *Stream) VideoTracks() []Track {
	return s.tracksOfKind(TrackKindVideo)
}

func (s *Stream) tracksOfKind(kind TrackKind) []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// Close stops every track and deactivates the stream.
func (s *Stream) Close() {
	s.mu.Lock()
	tracks := make([]Track, len(s.tracks))
	copy(tracks, s.tracks)
	s.active = false
	s.mu.Unlock()

	for _, t := range tracks {
		t.Stop()
	}
}

// Constraints describes the media to acquire.
type Constraints struct {
	Audio       bool
	Video       bool
	VideoWidth  int
	VideoHeight int
}

// DefaultConstraints requests audio plus 720p video, the stock settings
// for an outgoing call.
func DefaultConstraints() Constraints {
	return Constraints{Audio: true, Video: true, VideoWidth: 1280, VideoHeight: 720}
}

// FromMediaTypes builds constraints matching a negotiated media offer.
func FromMediaTypes(audio, video bool) Constraints {
	c := DefaultConstraints()
	c.Audio = audio
	c.Video = video
	return c
}

// Acquirer obtains local capture streams. Acquisition can block on user
// permission prompts and fail when devices are denied or missing.
type Acquirer interface {
	Acquire(ctx context.Context, c Constraints) (*Stream, error)
}
