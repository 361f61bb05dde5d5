// Package testutil builds throwaway SQLite fixtures shaped like the
// two production datastores, so store and end-to-end tests can run
// against real databases under t.TempDir.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// FixtureConversation seeds one row of the conversations fixture.
type FixtureConversation struct {
	GUID        string
	Identifier  string
	DisplayName string
	Handles     []string
}

// FixtureMessage seeds one row of the message table. Date is
// nanoseconds since the Apple epoch (2001-01-01 UTC).
type FixtureMessage struct {
	Date     int64
	Text     string
	FromMe   bool
	Handle   string // must appear in some conversation's Handles
	RoomName string // ties a message to a named group, optional
}

// FixtureContact seeds one person in the contacts fixture.
type FixtureContact struct {
	First  string
	Last   string
	Phones []string
	Emails []string
}

// messagesSchema is the subset of the Messages store the engine reads.
const messagesSchema = `
CREATE TABLE chat (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL,
	chat_identifier TEXT NOT NULL,
	display_name TEXT,
	room_name TEXT
);
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL
);
CREATE TABLE chat_handle_join (
	chat_id INTEGER NOT NULL,
	handle_id INTEGER NOT NULL
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	text TEXT,
	attributedBody BLOB,
	is_from_me INTEGER NOT NULL DEFAULT 0,
	handle_id INTEGER,
	cache_roomnames TEXT
);
`

// contactsSchema is the subset of the AddressBook store the engine reads.
const contactsSchema = `
CREATE TABLE ZABCDRECORD (
	Z_PK INTEGER PRIMARY KEY AUTOINCREMENT,
	ZFIRSTNAME TEXT,
	ZLASTNAME TEXT
);
CREATE TABLE ZABCDPHONENUMBER (
	Z_PK INTEGER PRIMARY KEY AUTOINCREMENT,
	ZOWNER INTEGER,
	ZFULLNUMBER TEXT,
	ZORDERINGINDEX INTEGER DEFAULT 0
);
CREATE TABLE ZABCDEMAILADDRESS (
	Z_PK INTEGER PRIMARY KEY AUTOINCREMENT,
	ZOWNER INTEGER,
	ZADDRESS TEXT
);
`

// MessagesDB writes a Messages-shaped fixture and returns its path.
func MessagesDB(t *testing.T, conversations []FixtureConversation, messages []FixtureMessage) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(messagesSchema)
	require.NoError(t, err)

	handleIDs := map[string]int64{}
	handleFor := func(addr string) int64 {
		if id, ok := handleIDs[addr]; ok {
			return id
		}
		res, err := db.Exec(`INSERT INTO handle (id) VALUES (?)`, addr)
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		handleIDs[addr] = id
		return id
	}

	for _, c := range conversations {
		roomName := ""
		if c.DisplayName != "" {
			roomName = c.Identifier
		}
		res, err := db.Exec(
			`INSERT INTO chat (guid, chat_identifier, display_name, room_name) VALUES (?, ?, ?, ?)`,
			c.GUID, c.Identifier, nullable(c.DisplayName), nullable(roomName),
		)
		require.NoError(t, err)
		chatID, err := res.LastInsertId()
		require.NoError(t, err)
		for _, h := range c.Handles {
			_, err = db.Exec(`INSERT INTO chat_handle_join (chat_id, handle_id) VALUES (?, ?)`, chatID, handleFor(h))
			require.NoError(t, err)
		}
	}

	for _, m := range messages {
		var handleID any
		if m.Handle != "" {
			handleID = handleFor(m.Handle)
		}
		_, err = db.Exec(
			`INSERT INTO message (date, text, is_from_me, handle_id, cache_roomnames) VALUES (?, ?, ?, ?, ?)`,
			m.Date, nullable(m.Text), boolToInt(m.FromMe), handleID, nullable(m.RoomName),
		)
		require.NoError(t, err)
	}

	return path
}

// ContactsDB writes an AddressBook-shaped fixture and returns its path.
// The returned path itself works as a contacts glob.
func ContactsDB(t *testing.T, contacts []FixtureContact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AddressBook-v22.abcddb")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(contactsSchema)
	require.NoError(t, err)

	for _, c := range contacts {
		res, err := db.Exec(`INSERT INTO ZABCDRECORD (ZFIRSTNAME, ZLASTNAME) VALUES (?, ?)`,
			nullable(c.First), nullable(c.Last))
		require.NoError(t, err)
		owner, err := res.LastInsertId()
		require.NoError(t, err)
		for i, p := range c.Phones {
			_, err = db.Exec(`INSERT INTO ZABCDPHONENUMBER (ZOWNER, ZFULLNUMBER, ZORDERINGINDEX) VALUES (?, ?, ?)`,
				owner, p, i)
			require.NoError(t, err)
		}
		for _, e := range c.Emails {
			_, err = db.Exec(`INSERT INTO ZABCDEMAILADDRESS (ZOWNER, ZADDRESS) VALUES (?, ?)`, owner, e)
			require.NoError(t, err)
		}
	}

	return path
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AppleNanos converts Unix seconds to the Apple-epoch nanosecond
// format the message table stores.
func AppleNanos(unixSeconds int64) int64 {
	const appleEpochOffset = 978307200
	return (unixSeconds - appleEpochOffset) * 1_000_000_000
}
