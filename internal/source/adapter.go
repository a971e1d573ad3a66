// Package source normalizes platform-specific conversation payloads into
// the Message shape consumed by the conversation graph. Each supported
// chat product implements the Adapter interface; a registry selects the
// right one by platform name or URL.
package source

import (
	"errors"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

// ErrUnknownPlatform is returned when no adapter matches.
var ErrUnknownPlatform = errors.New("source: unknown platform")

// Adapter turns raw conversation payloads from one chat product into
// normalized messages in parent-first order. Adapters are pure data
// transformations: no network or DOM access, testable from fixtures.
type Adapter interface {
	// Platform returns the stable platform identifier ("chatgpt",
	// "claude", "gemini").
	Platform() string

	// MatchURL reports whether the adapter handles conversations at the
	// given URL.
	MatchURL(url string) bool

	// ConversationID extracts the conversation id from a URL, or ""
	// when the URL carries none.
	ConversationID(url string) string

	// Normalize parses a raw export/API payload into messages ordered
	// parent before child.
	Normalize(raw []byte) ([]models.Message, error)

	// SupportsEditVersions reports whether the platform exposes
	// alternate message versions.
	SupportsEditVersions() bool

	// SupportsBranching reports whether the platform supports spawning
	// a new conversation from a message.
	SupportsBranching() bool
}
