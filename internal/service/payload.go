package service

import "encoding/json"

// Export payloads carry their own conversation id and title on some
// platforms. These helpers peek at just those fields so the import path
// can fall back to them when the caller supplies neither.

func payloadConversationID(platform string, raw []byte) string {
	switch platform {
	case "chatgpt":
		var peek struct {
			ConversationID string `json:"conversation_id"`
			ID             string `json:"id"`
		}
		if json.Unmarshal(raw, &peek) != nil {
			return ""
		}
		if peek.ConversationID != "" {
			return peek.ConversationID
		}
		return peek.ID
	case "claude":
		var peek struct {
			UUID string `json:"uuid"`
		}
		if json.Unmarshal(raw, &peek) != nil {
			return ""
		}
		return peek.UUID
	default:
		return ""
	}
}

func payloadTitle(platform string, raw []byte) string {
	switch platform {
	case "chatgpt":
		var peek struct {
			Title string `json:"title"`
		}
		if json.Unmarshal(raw, &peek) != nil {
			return ""
		}
		return peek.Title
	case "claude":
		var peek struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &peek) != nil {
			return ""
		}
		return peek.Name
	default:
		return ""
	}
}
