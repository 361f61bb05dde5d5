// Package protocol speaks the one-request, one-response JSON contract:
// a whole payload on stdin, a single structured response on stdout.
// Anything diagnostic goes to the logger, never to stdout.
package protocol

import (
	"encoding/json"
	"errors"
	"strings"
)

// Actions, in decode priority order.
const (
	ActionResolve           = "resolve"
	ActionResolveFuzzy      = "resolve-fuzzy"
	ActionSendByDisplayName = "send-by-display-name"
	ActionSendByContactName = "send-by-contact-name"
	ActionLookupHandles     = "lookup-contact-handles"
	ActionSend              = "send"
	ActionRecentMessages    = "recent-messages"
	ActionSearchMessages    = "search-messages"
)

// actionOrder fixes which shapes are recognized and in what priority.
var actionOrder = []string{
	ActionResolve,
	ActionResolveFuzzy,
	ActionSendByDisplayName,
	ActionSendByContactName,
	ActionLookupHandles,
	ActionSend,
	ActionRecentMessages,
	ActionSearchMessages,
}

// ErrUnrecognized marks a payload that matches no known request shape.
var ErrUnrecognized = errors.New("unrecognized request")

// Request is the union of every request shape, discriminated by
// Action. Which fields are required depends on the action; the
// handler validates per shape.
type Request struct {
	Action  string     `json:"action"`
	Query   string     `json:"query,omitempty"`
	Body    string     `json:"body,omitempty"`
	ChatID  string     `json:"chat_id,omitempty"`
	To      StringList `json:"to,omitempty"`
	Name    string     `json:"name,omitempty"`
	Contact string     `json:"contact,omitempty"`
	Hours   float64    `json:"hours,omitempty"`
}

// DecodeRequest parses raw against the known shapes. A payload that is
// not JSON, has no action, or names an unknown action fails with
// ErrUnrecognized.
func DecodeRequest(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, ErrUnrecognized
	}
	for _, a := range actionOrder {
		if req.Action == a {
			return &req, nil
		}
	}
	return nil, ErrUnrecognized
}

// StringList accepts either a JSON array of strings or a single
// comma-separated string; callers address one or many recipients with
// the same field.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*s = trimmed(list)
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = trimmed(strings.Split(one, ","))
	return nil
}

func trimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
