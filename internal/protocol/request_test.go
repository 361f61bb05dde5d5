package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"action":"resolve","query":"Mom"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionResolve, req.Action)
	assert.Equal(t, "Mom", req.Query)

	req, err = DecodeRequest([]byte(`{"action":"send","chat_id":"iMessage;-;abc","body":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "iMessage;-;abc", req.ChatID)
	assert.Equal(t, "hi", req.Body)
}

func TestDecodeRequest_Unrecognized(t *testing.T) {
	for _, raw := range []string{
		`not json at all`,
		`{}`,
		`{"action":"fly-to-the-moon"}`,
		`{"query":"no action"}`,
		`[]`,
	} {
		_, err := DecodeRequest([]byte(raw))
		assert.True(t, errors.Is(err, ErrUnrecognized), "payload %q", raw)
	}
}

func TestStringList(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"action":"send","to":["+15551111111","+15552222222"]}`), &req))
	assert.Equal(t, StringList{"+15551111111", "+15552222222"}, req.To)

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"action":"send","to":"+15551111111, +15552222222"}`), &req))
	assert.Equal(t, StringList{"+15551111111", "+15552222222"}, req.To)

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"action":"send","to":" , "}`), &req))
	assert.Empty(t, req.To)
}

func TestResponseRoundTrip(t *testing.T) {
	// Callers decode responses on their side; every shape must
	// survive an encode/decode cycle with its fields intact.
	in := SendResponse{Status: StatusSent, Detail: "sent to chat_id", ChatID: "iMessage;-;abc"}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var out SendResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	errIn := ErrorResponse{Status: StatusError, Error: ErrMultipleMatches, To: []string{"+1555", "x@y.z"}}
	raw, err = json.Marshal(errIn)
	require.NoError(t, err)
	var errOut ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &errOut))
	assert.Equal(t, errIn, errOut)
}

func TestHandlesResponse_EmptyEncodesAsArray(t *testing.T) {
	raw, err := json.Marshal(HandlesResponse{Status: StatusOK, Handles: []string{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","handles":[]}`, string(raw))
}
