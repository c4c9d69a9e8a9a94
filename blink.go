/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package blink is the top-level entry point of the Blink Go SDK, a
// client-side engine for SIP/WebRTC calling and conferencing over a Sylk
// style websocket gateway. It wires the session core, the conference
// engine, the navigation router, and their collaborators.
package blink

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
	"github.com/blinkrtc/blink-go-sdk/conference"
	"github.com/blinkrtc/blink-go-sdk/history"
	"github.com/blinkrtc/blink-go-sdk/media"
	"github.com/blinkrtc/blink-go-sdk/notify"
	"github.com/blinkrtc/blink-go-sdk/routes"
	"github.com/blinkrtc/blink-go-sdk/session"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// Options customize client construction. Zero values select the stock
// collaborators.
type Options struct {
	Config   *blinksdk.Config
	Logger   *zerolog.Logger
	Dialer   signaling.Dialer
	Media    media.Acquirer
	Notifier session.Notifier
	Cues     Cues

	// Supported is the platform capability flag consumed by the
	// navigation guard. Embedders probe for WebRTC support and pass the
	// result; the default assumes a capable platform.
	Supported *bool
}

// Cues is the union of the session and conference tone players.
type Cues interface {
	session.AudioCues
	conference.Cues
}

// Client aggregates the SDK components.
type Client struct {
	config  *blinksdk.Config
	logger  zerolog.Logger
	history *history.Store
	session *session.Controller
	router  *routes.Router

	confMu     sync.Mutex
	confEngine *conference.Engine
}

// NewClient builds a fully wired client.
func NewClient(opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = blinksdk.DefaultConfig()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	store, err := history.Open(cfg.HistoryPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = signaling.NewWSDialer(nil, logger)
	}
	acquirer := opts.Media
	if acquirer == nil {
		acquirer = media.NewCaptureAcquirer(logger)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	cues := opts.Cues
	if cues == nil {
		cues = notify.NewLogCues(logger)
	}
	supported := true
	if opts.Supported != nil {
		supported = *opts.Supported
	}

	c := &Client{
		config:  cfg,
		logger:  logger,
		history: store,
	}

	c.session = session.New(session.Deps{
		Config:   cfg,
		Dialer:   dialer,
		Media:    acquirer,
		History:  store,
		Notifier: notifier,
		Cues:     cues,
		Nav:      nil, // wired below, the router needs the session first
		Logger:   logger,
	})

	c.router = routes.NewRouter(routes.Guard{Supported: supported}, c.session, cfg, logger)
	c.session.SetNavigator(c.router)

	c.confEngine = conference.New(conference.Deps{
		Cues:   cues,
		Logger: logger,
		Hangup: c.session.Hangup,
	})

	return c, nil
}

// Config returns the active configuration.
func (c *Client) Config() *blinksdk.Config {
	return c.config
}

// Session returns the session controller.
func (c *Client) Session() *session.Controller {
	return c.session
}

// Router returns the navigation router.
func (c *Client) Router() *routes.Router {
	return c.router
}

// History returns the call history store.
func (c *Client) History() *history.Store {
	return c.history
}

// Conference returns the conference engine.
func (c *Client) Conference() *conference.Engine {
	return c.confEngine
}

// EnterConference hands the current call to the conference engine,
// forwarding any invite list pending from an escalation.
func (c *Client) EnterConference() error {
	c.confMu.Lock()
	defer c.confMu.Unlock()

	snap := c.session.Snapshot()
	if snap.CurrentCall == nil {
		return fmt.Errorf("no call to join")
	}
	c.confEngine.Join(snap.CurrentCall, c.session.TakeInviteList())
	return nil
}

// Close releases the client's resources. The session is logged out first
// when an account is still bound.
func (c *Client) Close() error {
	c.session.Logout()
	return c.history.Close()
}
