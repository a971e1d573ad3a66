package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/raphaelgruber/chattree-go/internal/models"
)

// Key layout. Branch data and settings live under fixed keys and never
// expire; cached conversations expire on the store's default TTL.
const (
	keyBranchData = "branches"
	keySettings   = "settings"
	convPrefix    = "conv:"
)

// Settings are user-tunable options persisted between sessions.
type Settings struct {
	DefaultPlatform string `json:"default_platform,omitempty"`
	TreeExpanded    bool   `json:"tree_expanded,omitempty"`
}

// CachedConversation is one conversation's normalized messages as
// persisted in the cache.
type CachedConversation struct {
	Platform       string           `json:"platform"`
	ConversationID string           `json:"conversation_id"`
	Title          string           `json:"title,omitempty"`
	Messages       []models.Message `json:"messages"`
}

// SaveBranchData persists the full branch record structure. Branch data
// is small and authoritative, so it is written as one blob without TTL.
func (s *Store) SaveBranchData(data *models.BranchData) error {
	return s.PutJSON(keyBranchData, data, -1)
}

// LoadBranchData returns the persisted branch data, or an empty
// structure when none has been saved yet.
func (s *Store) LoadBranchData() (*models.BranchData, error) {
	data := models.NewBranchData()
	err := s.GetJSON(keyBranchData, data)
	if errors.Is(err, ErrNotFound) {
		return models.NewBranchData(), nil
	}
	if err != nil {
		return nil, err
	}
	if data.Branches == nil {
		data.Branches = make(map[string][]models.BranchRecord)
	}
	if data.Titles == nil {
		data.Titles = make(map[string]string)
	}
	return data, nil
}

// AddBranch appends a branch record under a parent conversation and
// persists the result. Records without an id are assigned one.
func (s *Store) AddBranch(parentConversationID string, rec models.BranchRecord) error {
	if parentConversationID == "" || rec.ChildID == "" {
		return fmt.Errorf("add branch: parent and child ids required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	data, err := s.LoadBranchData()
	if err != nil {
		return err
	}
	data.Branches[parentConversationID] = append(data.Branches[parentConversationID], rec)
	if rec.Title != "" {
		data.Titles[rec.ChildID] = rec.Title
	}
	return s.SaveBranchData(data)
}

// SetTitle records a conversation title.
func (s *Store) SetTitle(conversationID, title string) error {
	data, err := s.LoadBranchData()
	if err != nil {
		return err
	}
	data.Titles[conversationID] = title
	return s.SaveBranchData(data)
}

// CacheConversation stores a conversation's normalized messages under
// the default TTL.
func (s *Store) CacheConversation(conv CachedConversation) error {
	if conv.Platform == "" || conv.ConversationID == "" {
		return fmt.Errorf("cache conversation: platform and id required")
	}
	return s.PutJSON(convKey(conv.Platform, conv.ConversationID), conv, 0)
}

// CachedConversationByID loads one cached conversation.
func (s *Store) CachedConversationByID(platform, conversationID string) (CachedConversation, error) {
	var conv CachedConversation
	err := s.GetJSON(convKey(platform, conversationID), &conv)
	return conv, err
}

// CachedConversations returns every live cached conversation, ordered by
// key for determinism.
func (s *Store) CachedConversations() ([]CachedConversation, error) {
	keys, err := s.keysWithPrefix(convPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	out := make([]CachedConversation, 0, len(keys))
	for _, key := range keys {
		var conv CachedConversation
		if err := s.GetJSON(key, &conv); err != nil {
			if errors.Is(err, ErrNotFound) {
				// Expired between scan and read.
				continue
			}
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// SaveSettings persists settings without TTL.
func (s *Store) SaveSettings(settings Settings) error {
	return s.PutJSON(keySettings, settings, -1)
}

// LoadSettings returns persisted settings, or zero settings when none
// exist.
func (s *Store) LoadSettings() (Settings, error) {
	var settings Settings
	err := s.GetJSON(keySettings, &settings)
	if errors.Is(err, ErrNotFound) {
		return Settings{}, nil
	}
	return settings, err
}

func convKey(platform, conversationID string) string {
	return convPrefix + platform + ":" + strings.TrimSpace(conversationID)
}
