/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package blink

import (
	"fmt"
	"testing"

	"github.com/blinkrtc/blink-go-sdk/signaling"
)

type stubDialer struct {
	dialed int
}

func (d *stubDialer) Dial(serverURL string) (signaling.Connection, error) {
	d.dialed++
	return nil, fmt.Errorf("stub dialer")
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if client.Config() == nil || client.Config().DefaultDomain != "sip2sip.info" {
		t.Errorf("config not defaulted: %+v", client.Config())
	}
	if client.Session() == nil || client.Router() == nil ||
		client.History() == nil || client.Conference() == nil {
		t.Errorf("component accessors returned nil")
	}
	if client.Router().Current() != "/login" {
		t.Errorf("initial route = %q", client.Router().Current())
	}
}

func TestClientUsesInjectedDialer(t *testing.T) {
	dialer := &stubDialer{}
	client, err := NewClient(&Options{Dialer: dialer})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	client.Session().StartNormalLogin("alice", "secret")

	if dialer.dialed != 1 {
		t.Errorf("dialed = %d, want 1", dialer.dialed)
	}
	snap := client.Session().Snapshot()
	if snap.Status == nil || snap.Status.Message != "Connection failed" {
		t.Errorf("dial failure not surfaced: %+v", snap.Status)
	}
}

func TestEnterConferenceWithoutCall(t *testing.T) {
	client, err := NewClient(&Options{Dialer: &stubDialer{}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.EnterConference(); err == nil {
		t.Errorf("joining without a call must fail")
	}
}

func TestUnsupportedPlatformRouting(t *testing.T) {
	unsupported := false
	client, err := NewClient(&Options{Dialer: &stubDialer{}, Supported: &unsupported})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	client.Router().Navigate("/ready")

	if got := client.Router().Current(); got != "/not-supported" {
		t.Errorf("current = %q, want /not-supported", got)
	}
}
