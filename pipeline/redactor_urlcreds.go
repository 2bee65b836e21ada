package pipeline

import (
	"regexp"

	"logpipe/envelope"
)

var urlCredentialsPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)([^/\s:@]+):([^/\s@]+)@`)

// URLCredentialsRedactor strips "user:pass@" from any string value that
// contains a URL-shaped credential, regardless of which field it's in.
type URLCredentialsRedactor struct{}

func NewURLCredentialsRedactor() *URLCredentialsRedactor {
	return &URLCredentialsRedactor{}
}

func (r *URLCredentialsRedactor) Name() string { return "url-credentials" }

func (r *URLCredentialsRedactor) Redact(e *envelope.Event, guard Guardrails) *envelope.Event {
	working := e.Clone()
	b := newWalkBudget(guard)

	strip := func(s string) string {
		return urlCredentialsPattern.ReplaceAllString(s, "${1}"+maskedValue+":"+maskedValue+"@")
	}

	if !walkStrings(working.Data, b, 1, strip) {
		return e
	}
	return working
}
