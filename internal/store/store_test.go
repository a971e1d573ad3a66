package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

func openTestStore(t *testing.T, defaultTTL time.Duration) *Store {
	t.Helper()
	st, err := Open(Config{InMemory: true, DefaultTTL: defaultTTL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPutGetJSON_RoundTrip(t *testing.T) {
	st := openTestStore(t, 0)

	in := map[string]int{"a": 1, "b": 2}
	require.NoError(t, st.PutJSON("k", in, -1))

	var out map[string]int
	require.NoError(t, st.GetJSON("k", &out))
	assert.Equal(t, in, out)
}

func TestGetJSON_Missing(t *testing.T) {
	st := openTestStore(t, 0)

	var out map[string]int
	err := st.GetJSON("absent", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutJSON_TTLExpiry(t *testing.T) {
	st := openTestStore(t, 0)

	require.NoError(t, st.PutJSON("short", "v", 50*time.Millisecond))

	var out string
	require.NoError(t, st.GetJSON("short", &out))

	time.Sleep(120 * time.Millisecond)
	err := st.GetJSON("short", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_AbsentKey(t *testing.T) {
	st := openTestStore(t, 0)
	assert.NoError(t, st.Delete("never-existed"))
}

func TestBranchData_RoundTrip(t *testing.T) {
	st := openTestStore(t, 0)

	// Missing data loads as empty, non-nil.
	data, err := st.LoadBranchData()
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Empty(t, data.Branches)

	require.NoError(t, st.AddBranch("parent", models.BranchRecord{
		ChildID: "child",
		Title:   "Side quest",
	}))

	data, err = st.LoadBranchData()
	require.NoError(t, err)
	require.Len(t, data.Branches["parent"], 1)
	rec := data.Branches["parent"][0]
	assert.Equal(t, "child", rec.ChildID)
	assert.NotEmpty(t, rec.ID, "missing record id should be assigned")
	assert.Equal(t, "Side quest", data.Titles["child"], "branch title recorded for the child")
}

func TestAddBranch_Validation(t *testing.T) {
	st := openTestStore(t, 0)

	assert.Error(t, st.AddBranch("", models.BranchRecord{ChildID: "c"}))
	assert.Error(t, st.AddBranch("p", models.BranchRecord{}))
}

func TestSetTitle(t *testing.T) {
	st := openTestStore(t, 0)

	require.NoError(t, st.SetTitle("conv", "My conversation"))
	data, err := st.LoadBranchData()
	require.NoError(t, err)
	assert.Equal(t, "My conversation", data.Titles["conv"])
}

func TestCacheConversation_RoundTrip(t *testing.T) {
	st := openTestStore(t, time.Hour)

	conv := CachedConversation{
		Platform:       "chatgpt",
		ConversationID: "conv-1",
		Title:          "T",
		Messages: []models.Message{
			{ID: "m1", Role: models.RoleUser, Text: "hi", CreateTime: 10},
		},
	}
	require.NoError(t, st.CacheConversation(conv))

	got, err := st.CachedConversationByID("chatgpt", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, conv, got)
}

func TestCacheConversation_Validation(t *testing.T) {
	st := openTestStore(t, 0)

	assert.Error(t, st.CacheConversation(CachedConversation{ConversationID: "x"}))
	assert.Error(t, st.CacheConversation(CachedConversation{Platform: "chatgpt"}))
}

func TestCachedConversations_SortedByKey(t *testing.T) {
	st := openTestStore(t, time.Hour)

	for _, id := range []string{"zeta", "alpha"} {
		require.NoError(t, st.CacheConversation(CachedConversation{
			Platform:       "claude",
			ConversationID: id,
		}))
	}

	convs, err := st.CachedConversations()
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "alpha", convs[0].ConversationID)
	assert.Equal(t, "zeta", convs[1].ConversationID)
}

func TestSettings_RoundTrip(t *testing.T) {
	st := openTestStore(t, 0)

	// Missing settings load as zero value.
	settings, err := st.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, Settings{}, settings)

	want := Settings{DefaultPlatform: "claude", TreeExpanded: true}
	require.NoError(t, st.SaveSettings(want))

	settings, err = st.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, want, settings)
}

func TestOpen_DiskRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
