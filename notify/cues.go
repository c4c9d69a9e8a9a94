/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package notify

import "github.com/rs/zerolog"

// LogCues logs the call progress and roster tones instead of playing
// audio. It satisfies both the session and conference cue interfaces.
type LogCues struct {
	logger zerolog.Logger
}

// NewLogCues creates a LogCues.
func NewLogCues(logger zerolog.Logger) *LogCues {
	return &LogCues{logger: logger.With().Str("module", "notify").Logger()}
}

func (c *LogCues) PlayOutboundRing() { c.logger.Debug().Msg("tone: outbound ring") }
func (c *LogCues) PlayInboundRing()  { c.logger.Debug().Msg("tone: inbound ring") }
func (c *LogCues) StopRings()        { c.logger.Debug().Msg("tone: stop rings") }
func (c *LogCues) PlayHangup()       { c.logger.Debug().Msg("tone: hangup") }
func (c *LogCues) PlayJoined()       { c.logger.Debug().Msg("tone: participant joined") }
func (c *LogCues) PlayLeft()         { c.logger.Debug().Msg("tone: participant left") }
