package models

// BranchRecord describes one "branch in new chat" action: a separate
// conversation spawned from a point in a parent conversation. Records are
// tracked outside the message graph and persisted by the store.
type BranchRecord struct {
	ID              string  `json:"id,omitempty"`
	ChildID         string  `json:"child_id"`
	Title           string  `json:"title,omitempty"`
	FirstMessage    string  `json:"first_message,omitempty"`
	ParentMessageID string  `json:"parent_message_id,omitempty"`
	CreatedAt       float64 `json:"created_at"`
}

// BranchData holds all external branch records, keyed by the parent
// conversation id, plus known conversation titles. The core only reads
// this structure; the store owns persistence.
type BranchData struct {
	Branches map[string][]BranchRecord `json:"branches"`
	Titles   map[string]string         `json:"titles"`
}

// NewBranchData returns an empty, non-nil BranchData.
func NewBranchData() *BranchData {
	return &BranchData{
		Branches: make(map[string][]BranchRecord),
		Titles:   make(map[string]string),
	}
}

// ParentOf returns the parent conversation id and its branch records if
// conversationID was spawned as a branch of another conversation.
func (d *BranchData) ParentOf(conversationID string) (string, []BranchRecord, bool) {
	if d == nil {
		return "", nil, false
	}
	for parentID, records := range d.Branches {
		for _, rec := range records {
			if rec.ChildID == conversationID {
				return parentID, records, true
			}
		}
	}
	return "", nil, false
}

// TitleOf returns the stored title for a conversation, or "" if unknown.
func (d *BranchData) TitleOf(conversationID string) string {
	if d == nil {
		return ""
	}
	return d.Titles[conversationID]
}
