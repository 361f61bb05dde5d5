package protocol

import (
	"encoding/json"
	"io"

	"github.com/sgrimes/msgcourier/internal/chatdb"
	"github.com/sgrimes/msgcourier/internal/contactsdb"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusSent  = "sent"
	StatusError = "error"
)

// Fixed error strings callers match on.
const (
	ErrMissingBody      = "missing body"
	ErrMissingQuery     = "missing query"
	ErrMissingRecipient = "missing recipient"
	ErrMissingContact   = "missing contact"
	ErrMissingName      = "missing name"
	ErrChatNotFound     = "chat_id not found in DB"
	ErrMultipleMatches  = "multiple_matches"
	ErrDeliveryFailed   = "delivery failed"
	ErrUnrecognizedReq  = "unrecognized request"
	ErrInternal         = "internal error"
)

// ResolveResponse answers resolve and resolve-fuzzy.
type ResolveResponse struct {
	Status  string                `json:"status"`
	Results []chatdb.Conversation `json:"results"`
}

// SendResponse answers a successful send of any flavor.
type SendResponse struct {
	Status string   `json:"status"`
	Detail string   `json:"detail,omitempty"`
	ChatID string   `json:"chat_id,omitempty"`
	To     []string `json:"to,omitempty"`
}

// HandlesResponse answers lookup-contact-handles. Handles is never
// null.
type HandlesResponse struct {
	Status  string   `json:"status"`
	Handles []string `json:"handles"`
}

// MessagesResponse answers recent-messages.
type MessagesResponse struct {
	Status   string           `json:"status"`
	Messages []chatdb.Message `json:"messages"`
}

// SearchResponse answers search-messages; each entry carries its
// match score.
type SearchResponse struct {
	Status   string                 `json:"status"`
	Messages []chatdb.ScoredMessage `json:"messages"`
}

// ErrorResponse is the one failure shape. Candidates unifies
// disambiguation lists whether the ambiguity arose from conversation
// or contact lookup; To repeats the bare addresses for callers that
// only want those.
type ErrorResponse struct {
	Status     string                 `json:"status"`
	Error      string                 `json:"error"`
	Detail     string                 `json:"detail,omitempty"`
	To         []string               `json:"to,omitempty"`
	Candidates []contactsdb.Candidate `json:"candidates,omitempty"`
}

func errorResponse(msg string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: msg}
}

// Encode writes one response payload to w, newline-terminated.
func Encode(w io.Writer, resp any) error {
	return json.NewEncoder(w).Encode(resp)
}
