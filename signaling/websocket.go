/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSConfig holds the tunables for the websocket transport.
type WSConfig struct {
	HandshakeTimeout time.Duration // Timeout for the websocket handshake
	PingInterval     time.Duration // Interval between ping messages
	PongTimeout      time.Duration // Timeout for receiving a pong response
	RequestTimeout   time.Duration // Timeout for a request acknowledgment
	BackoffTimeReset time.Duration // Initial delay before the first reconnect
	BackoffTimeMax   time.Duration // Maximum delay between reconnect attempts
}

// DefaultWSConfig returns the default transport configuration.
func DefaultWSConfig() *WSConfig {
	return &WSConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      10 * time.Second,
		RequestTimeout:   10 * time.Second,
		BackoffTimeReset: 1 * time.Second,
		BackoffTimeMax:   32 * time.Second,
	}
}

// Wire message types.
const (
	msgReady          = "ready"
	msgAck            = "ack"
	msgError          = "error"
	msgAccountAdd     = "account-add"
	msgAccountRemove  = "account-remove"
	msgRegister       = "account-register"
	msgUnregister     = "account-unregister"
	msgAccountEvent   = "account-event"
	msgSessionCreate  = "session-create"
	msgSessionAnswer  = "session-answer"
	msgSessionEnd     = "session-terminate"
	msgSessionEvent   = "session-event"
	msgRoomJoin       = "videoroom-join"
	msgRoomInvite     = "videoroom-invite"
	msgRoomEvent      = "videoroom-event"
	msgFeedAttach     = "videoroom-feed-attach"
	msgFeedDetach     = "videoroom-feed-detach"
)

// Account / session event names carried in the "event" field.
const (
	evRegistrationState = "registration-state"
	evIncomingSession   = "incoming-session"
	evMissedSession     = "missed-session"
	evConferenceInvite  = "conference-invite"
	evState             = "state"
	evParticipantJoined = "participant-joined"
	evParticipantLeft   = "participant-left"
	evParticipantState  = "participant-state"
)

// wsMessage is the JSON envelope for both requests and events.
type wsMessage struct {
	Type         string       `json:"sylkrtc"`
	Transaction  string       `json:"transaction,omitempty"`
	Error        string       `json:"error,omitempty"`
	Event        string       `json:"event,omitempty"`
	Account      string       `json:"account,omitempty"`
	Password     string       `json:"password,omitempty"`
	DisplayName  string       `json:"display_name,omitempty"`
	Session      string       `json:"session,omitempty"`
	URI          string       `json:"uri,omitempty"`
	Publisher    string       `json:"publisher,omitempty"`
	Participants []string     `json:"participants,omitempty"`
	Data         *wsEventData `json:"data,omitempty"`
}

// wsEventData is the payload of server events.
type wsEventData struct {
	State       string             `json:"state,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Room        string             `json:"room,omitempty"`
	Audio       bool               `json:"audio,omitempty"`
	Video       bool               `json:"video,omitempty"`
	Originator  *wsIdentity        `json:"originator,omitempty"`
	Participant *wsParticipantInfo `json:"participant,omitempty"`
}

type wsIdentity struct {
	URI         string `json:"uri"`
	DisplayName string `json:"display_name,omitempty"`
}

type wsParticipantInfo struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	DisplayName string `json:"display_name,omitempty"`
	State       string `json:"state,omitempty"`
	Audio       bool   `json:"audio,omitempty"`
	Video       bool   `json:"video,omitempty"`
}

// WSDialer opens websocket connections to the gateway.
type WSDialer struct {
	config *WSConfig
	logger zerolog.Logger
}

// NewWSDialer creates a dialer. A nil config selects the defaults.
func NewWSDialer(config *WSConfig, logger zerolog.Logger) *WSDialer {
	if config == nil {
		config = DefaultWSConfig()
	}
	return &WSDialer{
		config: config,
		logger: logger.With().Str("module", "signaling").Logger(),
	}
}

// Dial validates serverURL and returns a connection in the connecting
// state. The connect loop runs in the background; state transitions are
// announced through OnStateChanged.
func (d *WSDialer) Dial(serverURL string) (Connection, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("invalid gateway URL scheme %q", parsed.Scheme)
	}

	c := &wsConnection{
		config:   d.config,
		logger:   d.logger,
		url:      serverURL,
		state:    ConnectionConnecting,
		emitter:  NewEmitter(),
		accounts: make(map[string]*wsAccount),
		calls:    make(map[string]*wsCall),
		pending:  make(map[string]chan error),
		closeCh:  make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// wsConnection is a gateway connection over a single websocket. It owns
// reconnection with exponential backoff; consumers only observe the state
// transitions.
type wsConnection struct {
	config  *WSConfig
	logger  zerolog.Logger
	url     string
	emitter *Emitter

	mu       sync.Mutex
	conn     *websocket.Conn
	wmu      sync.Mutex
	state    ConnectionState
	accounts map[string]*wsAccount
	calls    map[string]*wsCall
	pending  map[string]chan error

	closeCh   chan struct{}
	closeOnce sync.Once
}

const eventConnectionState = "connectionStateChanged"

func (c *wsConnection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *wsConnection) OnStateChanged(h ConnectionStateHandler) Subscription {
	return c.emitter.On(eventConnectionState, func(data interface{}) {
		change := data.([2]ConnectionState)
		h(change[0], change[1])
	})
}

func (c *wsConnection) setState(next ConnectionState) {
	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	c.logger.Debug().
		Str("old", string(prev)).
		Str("new", string(next)).
		Msg("connection state changed")
	c.emitter.Emit(eventConnectionState, [2]ConnectionState{prev, next})
}

// run is the connect loop. It keeps the websocket alive until Close,
// doubling the retry delay after every failed attempt.
func (c *wsConnection) run() {
	backoff := c.config.BackoffTimeReset

	for {
		select {
		case <-c.closeCh:
			c.setState(ConnectionClosed)
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
		conn, _, err := dialer.Dial(c.url, nil)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", c.url).Msg("gateway dial failed")
			c.setState(ConnectionDisconnected)
			select {
			case <-time.After(backoff):
			case <-c.closeCh:
				c.setState(ConnectionClosed)
				return
			}
			backoff *= 2
			if backoff > c.config.BackoffTimeMax {
				backoff = c.config.BackoffTimeMax
			}
			continue
		}

		backoff = c.config.BackoffTimeReset
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Time{})
		})

		done := make(chan struct{})
		go c.pingLoop(conn, done)
		c.readLoop(conn)
		close(done)

		c.mu.Lock()
		c.conn = nil
		c.failPendingLocked(fmt.Errorf("connection lost"))
		c.mu.Unlock()

		select {
		case <-c.closeCh:
			c.setState(ConnectionClosed)
			return
		default:
			c.setState(ConnectionDisconnected)
		}
	}
}

func (c *wsConnection) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.config.PongTimeout)
			if err := conn.SetReadDeadline(deadline); err != nil {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			return
		case <-c.closeCh:
			return
		}
	}
}

func (c *wsConnection) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.logger.Debug().Err(err).Msg("websocket read ended")
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("unparseable gateway message")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *wsConnection) handleMessage(msg *wsMessage) {
	switch msg.Type {
	case msgReady:
		c.setState(ConnectionReady)
	case msgAck, msgError:
		c.resolveRequest(msg)
	case msgAccountEvent:
		c.mu.Lock()
		acc := c.accounts[msg.Account]
		c.mu.Unlock()
		if acc != nil {
			acc.handleEvent(msg)
		}
	case msgSessionEvent, msgRoomEvent:
		c.mu.Lock()
		call := c.calls[msg.Session]
		c.mu.Unlock()
		if call != nil {
			call.handleEvent(msg)
		}
	default:
		c.logger.Debug().Str("type", msg.Type).Msg("ignoring gateway message")
	}
}

func (c *wsConnection) resolveRequest(msg *wsMessage) {
	c.mu.Lock()
	ch := c.pending[msg.Transaction]
	delete(c.pending, msg.Transaction)
	c.mu.Unlock()

	if ch == nil {
		return
	}
	if msg.Type == msgError {
		ch <- fmt.Errorf("gateway error: %s", msg.Error)
	} else {
		ch <- nil
	}
}

func (c *wsConnection) failPendingLocked(err error) {
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- err
	}
}

// request sends msg and waits for its acknowledgment.
func (c *wsConnection) request(msg *wsMessage) error {
	msg.Transaction = uuid.NewString()
	ch := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	c.pending[msg.Transaction] = ch
	c.mu.Unlock()

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, raw)
	c.wmu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, msg.Transaction)
		c.mu.Unlock()
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}

	select {
	case err := <-ch:
		return err
	case <-time.After(c.config.RequestTimeout):
		c.mu.Lock()
		delete(c.pending, msg.Transaction)
		c.mu.Unlock()
		return fmt.Errorf("%s timed out", msg.Type)
	case <-c.closeCh:
		return fmt.Errorf("connection closed")
	}
}

// send fires a request on a transport goroutine, logging failures.
func (c *wsConnection) send(msg *wsMessage) {
	go func() {
		if err := c.request(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("request failed")
		}
	}()
}

func (c *wsConnection) AddAccount(opts AccountOptions, done func(Account, error)) {
	go func() {
		err := c.request(&wsMessage{
			Type:        msgAccountAdd,
			Account:     opts.Account,
			Password:    opts.Password,
			DisplayName: opts.DisplayName,
		})
		if err != nil {
			done(nil, err)
			return
		}

		acc := newWSAccount(c, opts)
		c.mu.Lock()
		c.accounts[opts.Account] = acc
		c.mu.Unlock()
		done(acc, nil)
	}()
}

func (c *wsConnection) RemoveAccount(account Account, done func(error)) {
	go func() {
		err := c.request(&wsMessage{Type: msgAccountRemove, Account: account.ID()})
		c.mu.Lock()
		delete(c.accounts, account.ID())
		c.mu.Unlock()
		done(err)
	}()
}

func (c *wsConnection) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed by client"))
		_ = conn.Close()
	} else {
		c.setState(ConnectionClosed)
	}
}

func (c *wsConnection) registerCall(call *wsCall) {
	c.mu.Lock()
	c.calls[call.id] = call
	c.mu.Unlock()
}

func (c *wsConnection) dropCall(id string) {
	c.mu.Lock()
	delete(c.calls, id)
	c.mu.Unlock()
}
