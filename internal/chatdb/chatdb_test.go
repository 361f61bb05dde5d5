package chatdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrimes/msgcourier/internal/testutil"
)

func openFixture(t *testing.T, conversations []testutil.FixtureConversation, messages []testutil.FixtureMessage) *Store {
	t.Helper()
	path := testutil.MessagesDB(t, conversations, messages)
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCheck(t *testing.T) {
	path := testutil.MessagesDB(t, nil, nil)
	status, err := Check(path)
	require.NoError(t, err)
	assert.NotEmpty(t, status)

	_, err = Check(filepath.Join(t.TempDir(), "absent.db"))
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestIsAddressableID(t *testing.T) {
	assert.True(t, IsAddressableID("iMessage;-;+15551234567"))
	assert.True(t, IsAddressableID("SMS;-;chat832174"))
	assert.False(t, IsAddressableID("chat832174016243"))
	assert.False(t, IsAddressableID("+15551234567"))
	assert.False(t, IsAddressableID(""))
}

func TestPrimaryIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		guid       string
		want       string
	}{
		{"stable key addressable", "iMessage;-;+1555", "guid-opaque", "iMessage;-;+1555"},
		{"guid addressable", "chat123", "iMessage;-;chat123", "iMessage;-;chat123"},
		{"neither addressable", "chat123", "opaque", "chat123"},
		{"only guid present", "", "opaque", "opaque"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, primaryIdentifier(tt.identifier, tt.guid))
		})
	}
}

func TestResolve_ExactNameRanksFirst(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "iMessage;-;mom@example.com", Identifier: "mom@example.com", Handles: []string{"mom@example.com"}},
		{GUID: "iMessage;-;chat1", Identifier: "chat1", DisplayName: "Mom's Book Club", Handles: []string{"+15550001111", "+15550002222"}},
		{GUID: "iMessage;-;+15553334444", Identifier: "+15553334444", DisplayName: "Mom", Handles: []string{"+15553334444"}},
	}, nil)

	results, err := s.Resolve(context.Background(), "Mom", 20)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Mom", results[0].DisplayName)
	assert.Len(t, results, 3)
}

func TestResolve_PrefixBeforeSubstring(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "g1", Identifier: "chat1", DisplayName: "The Dev Team", Handles: []string{"+15550000001"}},
		{GUID: "g2", Identifier: "chat2", DisplayName: "Dev Standup", Handles: []string{"+15550000002"}},
	}, nil)

	results, err := s.Resolve(context.Background(), "Dev", 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Dev Standup", results[0].DisplayName)
}

func TestResolve_RecencyBreaksTies(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "g1", Identifier: "chat1", DisplayName: "Family", Handles: []string{"+15550000001"}},
		{GUID: "g2", Identifier: "chat2", DisplayName: "Family", Handles: []string{"+15550000002"}},
	}, nil)

	results, err := s.Resolve(context.Background(), "Family", 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// chat2 was inserted later, so it carries the higher ROWID.
	assert.Equal(t, "chat2", results[0].Identifier)
}

func TestResolve_MatchesParticipantAddress(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "iMessage;-;mom@example.com", Identifier: "mom@example.com", Handles: []string{"mom@example.com"}},
	}, nil)

	results, err := s.Resolve(context.Background(), "mom", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"mom@example.com"}, results[0].Participants)
	assert.Equal(t, "iMessage;-;mom@example.com", results[0].ChatID)
}

func TestResolve_CapsResults(t *testing.T) {
	var convs []testutil.FixtureConversation
	for i := 0; i < 30; i++ {
		convs = append(convs, testutil.FixtureConversation{
			GUID:        "g",
			Identifier:  "chatX",
			DisplayName: "Crowd",
			Handles:     []string{"+15550000001"},
		})
	}
	s := openFixture(t, convs, nil)

	results, err := s.Resolve(context.Background(), "Crowd", 20)
	require.NoError(t, err)
	assert.Len(t, results, 20)
}

func TestResolve_EmptyQuery(t *testing.T) {
	s := openFixture(t, nil, nil)
	results, err := s.Resolve(context.Background(), "   ", 20)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResolve_DeduplicatesParticipants(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "g1", Identifier: "chat1", DisplayName: "Pair", Handles: []string{"+1 (555) 123-4567", "15551234567"}},
	}, nil)

	results, err := s.Resolve(context.Background(), "Pair", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Participants, 1)
}

func TestResolveFuzzy_Misspelling(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "g1", Identifier: "chat1", DisplayName: "D1 Haters", Handles: []string{"+15550000001"}},
		{GUID: "g2", Identifier: "chat2", DisplayName: "Completely Different", Handles: []string{"+15550000002"}},
	}, nil)

	results, err := s.ResolveFuzzy(context.Background(), "D1 Hater", 20)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "D1 Haters", results[0].DisplayName)
}

func TestFindByIdentifier(t *testing.T) {
	s := openFixture(t, []testutil.FixtureConversation{
		{GUID: "iMessage;-;chat99", Identifier: "chat99", DisplayName: "Crew", Handles: []string{"+15550000009"}},
	}, nil)

	c, err := s.FindByIdentifier(context.Background(), "chat99")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Crew", c.DisplayName)

	c, err = s.FindByIdentifier(context.Background(), "chat404")
	require.NoError(t, err)
	assert.Nil(t, c)
}
