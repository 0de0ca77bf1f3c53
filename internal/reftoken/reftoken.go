// Package reftoken parses the correlation token that binds an inbound vendor
// reply to the RFP it answers. The token is embedded in invitation subjects
// as "Ref:<24 lowercase hex chars>" and vendors are asked to keep the
// subject line unchanged.
package reftoken

import "regexp"

// The token is exactly 24 hex characters. The trailing group rejects longer
// hex runs, which would otherwise silently correlate to the wrong RFP.
var pattern = regexp.MustCompile(`Ref:([a-f0-9]{24})(?:[^a-f0-9]|$)`)

// Extract returns the first well-formed token found in the subject, falling
// back to the body. The second return reports whether a token was found.
func Extract(subject, body string) (string, bool) {
	if m := pattern.FindStringSubmatch(subject); m != nil {
		return m[1], true
	}
	if m := pattern.FindStringSubmatch(body); m != nil {
		return m[1], true
	}
	return "", false
}
