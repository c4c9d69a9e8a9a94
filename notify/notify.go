/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package notify delivers user-visible notifications. The SDK ships a
// logging implementation; embedders provide one that reaches the OS
// notification center and wire the acknowledgment continuations to user
// clicks.
package notify

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// LogNotifier logs notifications instead of displaying them. Missed-call
// and invite acknowledgments are dropped: nothing can click a log line.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("module", "notify").Logger()}
}

// PostSystemNotification logs a transient notification.
func (n *LogNotifier) PostSystemNotification(title, body string, timeout time.Duration) {
	n.logger.Info().
		Str("title", title).
		Str("body", body).
		Dur("timeout", timeout).
		Msg("notification")
}

// PostMissedCall logs a missed call.
func (n *LogNotifier) PostMissedCall(from signaling.Identity, onAck func()) {
	n.logger.Info().Str("from", from.String()).Msg("missed call")
}

// PostConferenceInvite logs a conference invitation.
func (n *LogNotifier) PostConferenceInvite(from signaling.Identity, room string, onAck func()) {
	n.logger.Info().
		Str("from", from.String()).
		Str("room", room).
		Msg("conference invite")
}
