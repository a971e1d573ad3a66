package models

// Display node types. The presentation layer switches on these strings,
// so they are part of the output contract and must not change.
const (
	NodeMessage            = "message"
	NodeBranch             = "branch"
	NodeEditBranch         = "editBranch"
	NodeTitle              = "title"
	NodeBranchRoot         = "branchRoot"
	NodeAncestorTitle      = "ancestor-title"
	NodeCurrentTitle       = "current-title"
	NodePreBranchIndicator = "preBranchIndicator"
)

// DisplayNode is one entry in the flattened, render-ready tree sequence.
// Nodes are created fresh on every flatten call and never persisted; the
// annotator fills in IsTerminal / HasPrevContext / HasNextContext in a
// second pass over the same slice.
type DisplayNode struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Role       string  `json:"role,omitempty"`
	Depth      int     `json:"depth"`
	CreateTime float64 `json:"create_time"`

	// ColorIndex is an opaque grouping key identifying which visual chain
	// the node belongs to. nil means the node carries no chain context;
	// nil only matches nil during continuity detection.
	ColorIndex *int `json:"color_index,omitempty"`

	// Branch-specific fields.
	TargetConversationID string `json:"target_conversation_id,omitempty"`
	IsViewing            bool   `json:"is_viewing,omitempty"`
	Expanded             bool   `json:"expanded,omitempty"`

	// Edit-branch specific fields.
	VersionLabel    string `json:"version_label,omitempty"`
	DescendantCount int    `json:"descendant_count,omitempty"`

	// Set by the annotator.
	IsTerminal     bool `json:"is_terminal"`
	HasPrevContext bool `json:"has_prev_context"`
	HasNextContext bool `json:"has_next_context"`
}
