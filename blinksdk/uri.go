/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package blinksdk

import "strings"

// NormalizeURI lowercases target, strips an optional sip: prefix, and
// appends domain when target has no domain part of its own.
func NormalizeURI(target, domain string) string {
	uri := strings.ToLower(strings.TrimSpace(target))
	uri = strings.TrimPrefix(uri, "sip:")
	if uri == "" {
		return uri
	}
	if !strings.Contains(uri, "@") {
		uri = uri + "@" + domain
	}
	return uri
}

// URIUser returns the user part of a SIP address, or the whole address when
// it carries no domain.
func URIUser(uri string) string {
	if i := strings.Index(uri, "@"); i >= 0 {
		return uri[:i]
	}
	return uri
}
