package analyzer

import "regexp"

// urlPattern is deliberately permissive: scheme, host and path characters
// with percent-encoding allowed. Trailing sentence punctuation may be
// captured; the downstream fetches tolerate that and simply fail soft.
var urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9$\-_.+!*'(),%&/:;=?@~#]+`)

// ExtractURLs returns every URL-shaped substring in the message, in order of
// appearance. A message without links yields an empty slice.
func ExtractURLs(message string) []string {
	return urlPattern.FindAllString(message, -1)
}
