// Package oracle wraps the external generative models that perform the actual
// risk classification. Both backends accept a text prompt plus an optional
// image payload and return whatever unstructured text the model produced;
// interpreting that text is the analyzer's job.
package oracle

import (
	"context"
	"net/http"
)

// Client is the provider-agnostic view of a classification model.
type Client interface {
	// Generate sends the prompt (and image, when non-nil) to the model and
	// returns its raw text output.
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
	// Provider identifies which backend answered, e.g. "gemini" or "claude".
	Provider() string
}

// detectImageMIME sniffs the payload so the provider request can declare a
// concrete media type. Falls back to JPEG for payloads the sniffer cannot place.
func detectImageMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if len(mime) < 6 || mime[:6] != "image/" {
		return "image/jpeg"
	}
	return mime
}
