package protocol

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sgrimes/msgcourier/internal/chatdb"
	"github.com/sgrimes/msgcourier/internal/contactsdb"
	"github.com/sgrimes/msgcourier/internal/delivery"
	"github.com/sgrimes/msgcourier/internal/match"
)

// defaultWindowHours bounds recent-messages and search-messages when
// the request names no window.
const defaultWindowHours = 24

// searchThreshold is the minimum body score for search-messages hits,
// matching the fuzzy resolution threshold.
const searchThreshold = 0.3

// ChatStore is the read side of the messages datastore.
type ChatStore interface {
	Resolve(ctx context.Context, query string, limit int) ([]chatdb.Conversation, error)
	ResolveFuzzy(ctx context.Context, query string, limit int) ([]chatdb.Conversation, error)
	RecentMessages(ctx context.Context, window time.Duration, addressFilter string) ([]chatdb.Message, error)
	SearchMessages(ctx context.Context, query string, window time.Duration, threshold float64) ([]chatdb.ScoredMessage, error)
}

// ContactDirectory is the read side of the address book.
type ContactDirectory interface {
	Handles(ctx context.Context, query string) ([]contactsdb.Candidate, error)
	ResolveAddress(ctx context.Context, query string) (contactsdb.Candidate, error)
	AddressNames(ctx context.Context) (map[string]string, error)
}

// Deliverer runs the send cascade.
type Deliverer interface {
	Deliver(ctx context.Context, target delivery.Target, body string) (*delivery.Outcome, error)
}

// Handler dispatches one decoded request to the layer that serves it.
// Chats and Contacts may be nil when a datastore is unreachable;
// resolution paths then degrade to empty results while delivery paths
// fail with a structured error.
type Handler struct {
	Chats      ChatStore
	Contacts   ContactDirectory
	Courier    Deliverer
	Logger     *zap.Logger
	MaxResults int
}

// Handle turns a raw request payload into exactly one response value.
// It never panics: an unexpected failure inside any action handler
// becomes a generic error response.
func (h *Handler) Handle(ctx context.Context, raw []byte) (resp any) {
	defer func() {
		if r := recover(); r != nil {
			h.logger().Error("handler panic", zap.Any("panic", r))
			resp = errorResponse(ErrInternal)
		}
	}()

	req, err := DecodeRequest(raw)
	if err != nil {
		return errorResponse(ErrUnrecognizedReq)
	}
	h.logger().Debug("dispatch", zap.String("action", req.Action))

	switch req.Action {
	case ActionResolve:
		return h.resolve(ctx, req.Query, false)
	case ActionResolveFuzzy:
		return h.resolve(ctx, req.Query, true)
	case ActionSendByDisplayName:
		return h.sendByDisplayName(ctx, req)
	case ActionSendByContactName:
		return h.sendByContactName(ctx, req)
	case ActionLookupHandles:
		return h.lookupHandles(ctx, req)
	case ActionSend:
		return h.send(ctx, req)
	case ActionRecentMessages:
		return h.recentMessages(ctx, req)
	case ActionSearchMessages:
		return h.searchMessages(ctx, req)
	}
	return errorResponse(ErrUnrecognizedReq)
}

// resolve serves resolve and resolve-fuzzy. Resolution is best-effort:
// a missing or failing datastore yields an empty result list under
// status ok, never an error.
func (h *Handler) resolve(ctx context.Context, query string, fuzzy bool) any {
	if strings.TrimSpace(query) == "" {
		return errorResponse(ErrMissingQuery)
	}
	out := ResolveResponse{Status: StatusOK, Results: []chatdb.Conversation{}}
	if h.Chats == nil {
		return out
	}
	var (
		results []chatdb.Conversation
		err     error
	)
	if fuzzy {
		results, err = h.Chats.ResolveFuzzy(ctx, query, h.maxResults())
	} else {
		results, err = h.Chats.Resolve(ctx, query, h.maxResults())
	}
	if err != nil {
		h.logger().Warn("resolve degraded", zap.String("query", query), zap.Error(err))
		return out
	}
	if results != nil {
		out.Results = results
	}
	return out
}

func (h *Handler) send(ctx context.Context, req *Request) any {
	if strings.TrimSpace(req.Body) == "" {
		return errorResponse(ErrMissingBody)
	}
	if req.ChatID == "" && len(req.To) == 0 {
		return errorResponse(ErrMissingRecipient)
	}
	target := delivery.Target{ChatID: req.ChatID, Addresses: req.To}
	return h.deliver(ctx, target, req.Body)
}

func (h *Handler) sendByDisplayName(ctx context.Context, req *Request) any {
	if strings.TrimSpace(req.Body) == "" {
		return errorResponse(ErrMissingBody)
	}
	if strings.TrimSpace(req.Name) == "" {
		return errorResponse(ErrMissingName)
	}
	return h.deliver(ctx, delivery.Target{DisplayName: req.Name}, req.Body)
}

func (h *Handler) sendByContactName(ctx context.Context, req *Request) any {
	if strings.TrimSpace(req.Body) == "" {
		return errorResponse(ErrMissingBody)
	}
	if strings.TrimSpace(req.Contact) == "" {
		return errorResponse(ErrMissingContact)
	}
	if h.Contacts == nil {
		return errorResponse("contacts store unavailable")
	}

	cand, err := h.Contacts.ResolveAddress(ctx, req.Contact)
	if err != nil {
		return h.contactError(req.Contact, err)
	}
	return h.deliver(ctx, delivery.Target{Addresses: []string{cand.Address}}, req.Body)
}

func (h *Handler) lookupHandles(ctx context.Context, req *Request) any {
	if strings.TrimSpace(req.Contact) == "" {
		return errorResponse(ErrMissingContact)
	}
	out := HandlesResponse{Status: StatusOK, Handles: []string{}}
	if h.Contacts == nil {
		return out
	}
	candidates, err := h.Contacts.Handles(ctx, req.Contact)
	if err != nil {
		h.logger().Warn("contact lookup degraded", zap.String("contact", req.Contact), zap.Error(err))
		return out
	}
	for _, c := range candidates {
		out.Handles = append(out.Handles, c.Address)
	}
	return out
}

func (h *Handler) recentMessages(ctx context.Context, req *Request) any {
	out := MessagesResponse{Status: StatusOK, Messages: []chatdb.Message{}}
	if h.Chats == nil {
		return out
	}

	filter := strings.TrimSpace(req.Contact)
	if filter != "" && !match.IsRawAddress(filter) {
		if h.Contacts == nil {
			return out
		}
		cand, err := h.Contacts.ResolveAddress(ctx, filter)
		if err != nil {
			return h.contactError(filter, err)
		}
		filter = cand.Address
	}

	msgs, err := h.Chats.RecentMessages(ctx, h.window(req.Hours), filter)
	if err != nil {
		h.logger().Warn("recent messages degraded", zap.Error(err))
		return out
	}
	names := h.senderNames(ctx)
	for i := range msgs {
		nameSender(names, &msgs[i])
	}
	out.Messages = msgs
	return out
}

func (h *Handler) searchMessages(ctx context.Context, req *Request) any {
	if strings.TrimSpace(req.Query) == "" {
		return errorResponse(ErrMissingQuery)
	}
	out := SearchResponse{Status: StatusOK, Messages: []chatdb.ScoredMessage{}}
	if h.Chats == nil {
		return out
	}
	msgs, err := h.Chats.SearchMessages(ctx, req.Query, h.window(req.Hours), searchThreshold)
	if err != nil {
		h.logger().Warn("message search degraded", zap.Error(err))
		return out
	}
	names := h.senderNames(ctx)
	for i := range msgs {
		nameSender(names, &msgs[i].Message)
	}
	out.Messages = msgs
	return out
}

// deliver runs the cascade and translates its typed failures into the
// fixed wire strings.
func (h *Handler) deliver(ctx context.Context, target delivery.Target, body string) any {
	out, err := h.Courier.Deliver(ctx, target, body)
	if err != nil {
		if de, ok := delivery.AsError(err); ok {
			switch de.Code {
			case delivery.CodeEmptyBody:
				return errorResponse(ErrMissingBody)
			case delivery.CodeEmptyTarget:
				return errorResponse(ErrMissingRecipient)
			case delivery.CodeChatNotFound:
				return errorResponse(ErrChatNotFound)
			}
		}
		resp := errorResponse(ErrDeliveryFailed)
		resp.Detail = rootCause(err)
		return resp
	}
	return SendResponse{
		Status: StatusSent,
		Detail: out.Detail,
		ChatID: out.ChatID,
		To:     out.Addresses,
	}
}

// contactError maps contact lookup failures: no match gets its fixed
// string, ambiguity carries the unified candidate list, anything else
// is a datastore failure.
func (h *Handler) contactError(query string, err error) ErrorResponse {
	if ae, ok := contactsdb.IsAmbiguous(err); ok {
		resp := errorResponse(ErrMultipleMatches)
		resp.Candidates = ae.Candidates
		for _, c := range ae.Candidates {
			resp.To = append(resp.To, c.Address)
		}
		return resp
	}
	if errors.Is(err, contactsdb.ErrNoMatch) {
		return errorResponse("no contacts matching " + query)
	}
	h.logger().Warn("contact resolution failed", zap.String("contact", query), zap.Error(err))
	return errorResponse("contacts store unavailable")
}

// senderNames loads the address-to-name map, best-effort. A missing
// or failing address book yields nil and senders stay raw.
func (h *Handler) senderNames(ctx context.Context) map[string]string {
	if h.Contacts == nil {
		return nil
	}
	names, err := h.Contacts.AddressNames(ctx)
	if err != nil {
		return nil
	}
	return names
}

func nameSender(names map[string]string, m *chatdb.Message) {
	if m.FromMe || len(names) == 0 {
		return
	}
	if name, ok := names[match.CanonicalAddress(m.From)]; ok {
		m.From = name
	}
}

// rootCause digs out the innermost error text, which for delivery
// failures is the last automation error.
func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func (h *Handler) window(hours float64) time.Duration {
	if hours <= 0 {
		hours = defaultWindowHours
	}
	return time.Duration(hours * float64(time.Hour))
}

func (h *Handler) maxResults() int {
	if h.MaxResults > 0 {
		return h.MaxResults
	}
	return 20
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
