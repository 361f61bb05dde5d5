package chatdb

import "regexp"

// Conversation is one resolvable messaging thread.
type Conversation struct {
	// ChatID is the chosen primary identifier: the automation-
	// addressable form when one exists, otherwise the stable key.
	ChatID string `json:"chat_id"`

	// GUID is the opaque automation identifier from the store.
	GUID string `json:"-"`

	// Identifier is the stable per-conversation key.
	Identifier string `json:"-"`

	DisplayName string `json:"display_name,omitempty"`

	// Participants holds the conversation's raw addresses, ordered and
	// deduplicated. Never nil.
	Participants []string `json:"participants"`

	// RowID orders candidates by recency (higher = newer).
	RowID int64 `json:"-"`
}

// addressableIDPattern matches identifiers the automation layer can
// target directly: "<service>;-;<opaque>", e.g. "iMessage;-;+15551234567".
var addressableIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+;-;.+$`)

// IsAddressableID reports whether id can be handed to the automation
// layer as a direct send target.
func IsAddressableID(id string) bool {
	return addressableIDPattern.MatchString(id)
}

// primaryIdentifier picks the conversation's outward identifier:
// stable key if addressable, else the opaque identifier if
// addressable, else whichever is non-empty, stable key first.
func primaryIdentifier(identifier, guid string) string {
	switch {
	case IsAddressableID(identifier):
		return identifier
	case IsAddressableID(guid):
		return guid
	case identifier != "":
		return identifier
	default:
		return guid
	}
}
