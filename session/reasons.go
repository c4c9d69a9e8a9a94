/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"regexp"
	"strings"
)

// TerminationResult classifies a call termination reason string.
type TerminationResult struct {
	// Label is the user-facing description.
	Label string

	// Success reports a normal hangup as opposed to a failure.
	Success bool
}

type reasonRule struct {
	pattern *regexp.Regexp
	label   string
	success bool
}

// Ordered, first match wins. The reason strings come from the gateway and
// usually embed a SIP status code.
var reasonRules = []reasonRule{
	{regexp.MustCompile(`200`), "Hangup", true},
	{regexp.MustCompile(`404`), "User not found", false},
	{regexp.MustCompile(`408`), "Timeout", false},
	{regexp.MustCompile(`480`), "User not online", false},
	{regexp.MustCompile(`486|60[036]`), "Busy", false},
	{regexp.MustCompile(`487`), "Cancelled", false},
	{regexp.MustCompile(`488`), "Unacceptable media", false},
	{regexp.MustCompile(`5\d\d`), "Server failure", false},
	{regexp.MustCompile(`904`), "Bad account or password", false},
}

// ClassifyTermination maps a raw termination reason to its user-facing
// label. An empty reason is a normal hangup. Unknown reasons classify as
// connection failure; the function is total and never panics.
func ClassifyTermination(reason string) TerminationResult {
	if reason == "" {
		return TerminationResult{Label: "Hangup", Success: true}
	}
	for _, rule := range reasonRules {
		if rule.pattern.MatchString(reason) {
			return TerminationResult{Label: rule.label, Success: rule.success}
		}
	}
	return TerminationResult{Label: "Connection failed", Success: false}
}

// ClassifyRegistrationFailure maps a registration failure reason to its
// user-facing label.
func ClassifyRegistrationFailure(reason string) string {
	if strings.Contains(reason, "904") {
		return "Bad account or password"
	}
	return "Connection failed"
}
