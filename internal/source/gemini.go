package source

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

// Gemini normalizes Gemini / AI Studio prompt payloads. Chunks carry no
// ids, so stable ids are derived from content: identical prefixes across
// two branched conversations hash to identical ids, which lets the graph
// deduplicate the shared prefix exactly as it does for platforms with
// real message ids.
type Gemini struct{}

// NewGemini returns the Gemini adapter.
func NewGemini() *Gemini { return &Gemini{} }

func (g *Gemini) Platform() string { return "gemini" }

func (g *Gemini) MatchURL(url string) bool {
	return strings.Contains(url, "gemini.google.com") || strings.Contains(url, "aistudio.google.com")
}

func (g *Gemini) ConversationID(url string) string {
	if id := pathSegmentAfter(url, "/app/"); id != "" {
		return id
	}
	return pathSegmentAfter(url, "/prompts/")
}

func (g *Gemini) SupportsEditVersions() bool { return false }
func (g *Gemini) SupportsBranching() bool    { return false }

type geminiExport struct {
	ChunkedPrompt struct {
		Chunks []geminiChunk `json:"chunks"`
	} `json:"chunkedPrompt"`
}

type geminiChunk struct {
	Text string `json:"text"`
	Role string `json:"role"`
}

// Normalize converts the linear chunk list, mapping role "model" to
// assistant and chaining chunks in order.
func (g *Gemini) Normalize(raw []byte) ([]models.Message, error) {
	var export geminiExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("parse gemini payload: %w", err)
	}
	chunks := export.ChunkedPrompt.Chunks
	if len(chunks) == 0 {
		return nil, fmt.Errorf("gemini payload has no chunks")
	}

	out := make([]models.Message, 0, len(chunks))
	prevID := ""
	for i, chunk := range chunks {
		role := models.RoleUser
		if chunk.Role == "model" {
			role = models.RoleAssistant
		}
		id := chunkID(prevID, i, chunk.Role, chunk.Text)
		out = append(out, models.Message{
			ID:         id,
			Role:       role,
			Text:       chunk.Text,
			CreateTime: 0,
			ParentID:   prevID,
		})
		prevID = id
	}
	return out, nil
}

// chunkID derives a content-addressed id. Chaining the previous id into
// the hash makes the id depend on the whole prefix, so conversations
// only share ids while their histories are literally identical.
func chunkID(prevID string, index int, role, text string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%s|%s", prevID, index, role, text)
	return fmt.Sprintf("g-%016x", h.Sum64())
}
