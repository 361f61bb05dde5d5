package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sgrimes/msgcourier/internal/chatdb"
	"github.com/sgrimes/msgcourier/internal/contactsdb"
	"github.com/sgrimes/msgcourier/internal/delivery"
	"github.com/sgrimes/msgcourier/internal/osa"
	"github.com/sgrimes/msgcourier/internal/protocol"
	"github.com/sgrimes/msgcourier/internal/testutil"
)

// scriptKinds names the automation templates so scenarios can fail
// them selectively without quoting script source.
var scriptKinds = map[string]string{
	osa.ScriptSendToChatID:         "send-to-chat-id",
	osa.ScriptSendToChatNamed:      "send-to-chat-named",
	osa.ScriptSendToChatContaining: "send-to-chat-containing",
	osa.ScriptSendToParticipant:    "send-to-participant",
	osa.ScriptCreateChatAndSend:    "create-chat-and-send",
}

// stubRunner fails the script kinds a scenario lists and succeeds
// everything else, recording each call's kind in order.
type stubRunner struct {
	fail  map[string]bool
	Calls []string
}

func (r *stubRunner) Run(_ context.Context, script string, _ ...string) (string, error) {
	kind := scriptKinds[script]
	r.Calls = append(r.Calls, kind)
	if r.fail[kind] {
		return "", &osa.ScriptError{ExitCode: 1, Stderr: "execution error: " + kind}
	}
	return "", nil
}

// Result carries the encoded response and the automation calls the
// scenario triggered.
type Result struct {
	Response []byte
	Calls    []string
}

// Run executes a scenario against fresh fixture datastores and a stub
// automation runner, returning the encoded response payload.
func Run(t *testing.T, s *Scenario) *Result {
	t.Helper()

	var chats protocol.ChatStore
	var source delivery.ParticipantSource
	if len(s.Conversations) > 0 {
		convs := make([]testutil.FixtureConversation, len(s.Conversations))
		for i, c := range s.Conversations {
			convs[i] = testutil.FixtureConversation{
				GUID:        c.GUID,
				Identifier:  c.Identifier,
				DisplayName: c.DisplayName,
				Handles:     c.Handles,
			}
		}
		store, err := chatdb.Open(testutil.MessagesDB(t, convs, nil))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		chats = store
		source = store
	}

	var contacts protocol.ContactDirectory
	if len(s.Contacts) > 0 {
		people := make([]testutil.FixtureContact, len(s.Contacts))
		for i, c := range s.Contacts {
			people[i] = testutil.FixtureContact{
				First:  c.First,
				Last:   c.Last,
				Phones: c.Phones,
				Emails: c.Emails,
			}
		}
		dir, err := contactsdb.Open(testutil.ContactsDB(t, people))
		require.NoError(t, err)
		contacts = dir
	}

	runner := &stubRunner{fail: map[string]bool{}}
	for _, kind := range s.FailScripts {
		runner.fail[kind] = true
	}

	handler := &protocol.Handler{
		Chats:    chats,
		Contacts: contacts,
		Courier:  delivery.New(runner, source, zap.NewNop()),
		Logger:   zap.NewNop(),
	}

	resp := handler.Handle(context.Background(), []byte(s.Request))
	var buf bytes.Buffer
	require.NoError(t, protocol.Encode(&buf, resp))

	return &Result{Response: buf.Bytes(), Calls: runner.Calls}
}
