// Package delivery implements the ordered fallback machine that turns
// a send target into automation calls. Strategies run in a fixed
// order, cheapest and safest first; a strategy's failure advances the
// machine, and the first success ends it.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sgrimes/msgcourier/internal/chatdb"
	"github.com/sgrimes/msgcourier/internal/osa"
)

// Strategy identifies one delivery mechanism.
type Strategy int

const (
	DirectIdentifier Strategy = iota
	ExactDisplayName
	RawAddressFallback
	NewConversationCreation
)

var strategyNames = map[Strategy]string{
	DirectIdentifier:        "direct-identifier",
	ExactDisplayName:        "exact-display-name",
	RawAddressFallback:      "raw-address-fallback",
	NewConversationCreation: "new-conversation",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Target names where a message should go. At least one field must be
// populated; a chat identifier takes priority, then the display name,
// then raw addresses.
type Target struct {
	ChatID      string
	DisplayName string
	Addresses   []string
}

// Validate rejects a target with nothing to aim at.
func (t Target) Validate() error {
	if t.ChatID == "" && t.DisplayName == "" && len(t.Addresses) == 0 {
		return &Error{Code: CodeEmptyTarget, Target: t.describe()}
	}
	return nil
}

func (t Target) describe() string {
	switch {
	case t.ChatID != "":
		return "chat " + t.ChatID
	case t.DisplayName != "":
		return "conversation named " + t.DisplayName
	case len(t.Addresses) == 1:
		return "address " + t.Addresses[0]
	case len(t.Addresses) > 1:
		return fmt.Sprintf("%d addresses", len(t.Addresses))
	}
	return "empty target"
}

// Outcome reports a successful delivery: which strategy landed it,
// and what it resolved to.
type Outcome struct {
	Strategy  Strategy
	Detail    string
	ChatID    string
	Addresses []string
}

// ParticipantSource recovers a conversation's display name and
// participant addresses for the fallback strategies. Backed by the
// messages store in production.
type ParticipantSource interface {
	FindByIdentifier(ctx context.Context, id string) (*chatdb.Conversation, error)
}

// Engine runs the delivery cascade. All collaborators are injected;
// the engine holds no state across Deliver calls.
type Engine struct {
	run    osa.Runner
	store  ParticipantSource
	logger *zap.Logger
}

// New builds an Engine. store may be nil when no messages datastore is
// reachable; the cascade then works only from what the target itself
// carries. logger may be nil.
func New(runner osa.Runner, store ParticipantSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{run: runner, store: store, logger: logger}
}

// Deliver attempts the cascade for target and body. It returns the
// outcome of the first strategy that succeeds, or a typed Error when
// validation fails or every applicable strategy is exhausted.
func (e *Engine) Deliver(ctx context.Context, target Target, body string) (*Outcome, error) {
	if strings.TrimSpace(body) == "" {
		return nil, &Error{Code: CodeEmptyBody, Target: target.describe()}
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	t, err := e.enrich(ctx, target)
	if err != nil {
		return nil, err
	}

	var lastErr error

	if t.ChatID != "" && chatdb.IsAddressableID(t.ChatID) {
		out, err := e.sendDirect(ctx, t.ChatID, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		e.logger.Debug("strategy failed",
			zap.Stringer("strategy", DirectIdentifier), zap.Error(err))
	}

	if t.DisplayName != "" {
		out, err := e.sendByName(ctx, t.DisplayName, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		e.logger.Debug("strategy failed",
			zap.Stringer("strategy", ExactDisplayName), zap.Error(err))
	}

	if len(t.Addresses) > 0 {
		out, err := e.sendToEach(ctx, t.Addresses, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		e.logger.Debug("strategy failed",
			zap.Stringer("strategy", RawAddressFallback), zap.Error(err))

		out, err = e.sendNewChat(ctx, t.Addresses, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		e.logger.Debug("strategy failed",
			zap.Stringer("strategy", NewConversationCreation), zap.Error(err))
	}

	return nil, &Error{Code: CodeExhausted, Target: target.describe(), Err: lastErr}
}

// enrich fills in the display name and participant addresses for a
// chat-identifier target from the messages store, so the later
// strategies have something to fall back on. A non-addressable
// identifier that the store does not know is a hard failure: no
// strategy could reach it.
func (e *Engine) enrich(ctx context.Context, t Target) (Target, error) {
	if t.ChatID == "" || e.store == nil {
		if t.ChatID != "" && !chatdb.IsAddressableID(t.ChatID) {
			return t, &Error{Code: CodeChatNotFound, Target: t.describe()}
		}
		return t, nil
	}

	conv, err := e.store.FindByIdentifier(ctx, t.ChatID)
	if err != nil {
		e.logger.Warn("participant lookup failed", zap.String("chat", t.ChatID), zap.Error(err))
		conv = nil
	}
	if conv == nil {
		if !chatdb.IsAddressableID(t.ChatID) {
			return t, &Error{Code: CodeChatNotFound, Target: t.describe(), Err: err}
		}
		return t, nil
	}

	if t.DisplayName == "" {
		t.DisplayName = conv.DisplayName
	}
	if len(t.Addresses) == 0 {
		t.Addresses = conv.Participants
	}
	return t, nil
}

func (e *Engine) sendDirect(ctx context.Context, chatID, body string) (*Outcome, error) {
	if _, err := e.run.Run(ctx, osa.ScriptSendToChatID, chatID, body); err != nil {
		return nil, err
	}
	return &Outcome{
		Strategy: DirectIdentifier,
		Detail:   "sent to chat_id",
		ChatID:   chatID,
	}, nil
}

// sendByName tries the exact-name pass first, then the lenient
// contains pass, against the conversations Messages already has.
func (e *Engine) sendByName(ctx context.Context, name, body string) (*Outcome, error) {
	_, err := e.run.Run(ctx, osa.ScriptSendToChatNamed, name, body)
	if err != nil {
		if _, cerr := e.run.Run(ctx, osa.ScriptSendToChatContaining, name, body); cerr != nil {
			return nil, cerr
		}
	}
	return &Outcome{
		Strategy: ExactDisplayName,
		Detail:   fmt.Sprintf("sent to conversation named %s", name),
	}, nil
}

// sendToEach fans out to every address in order, one subprocess at a
// time. Any single success makes the whole attempt a success; the
// remaining addresses are still tried so the message reaches as many
// recipients as possible.
func (e *Engine) sendToEach(ctx context.Context, addresses []string, body string) (*Outcome, error) {
	var delivered []string
	var lastErr error
	for _, addr := range addresses {
		if _, err := e.run.Run(ctx, osa.ScriptSendToParticipant, addr, body); err != nil {
			lastErr = err
			e.logger.Debug("address attempt failed", zap.String("address", addr), zap.Error(err))
			continue
		}
		delivered = append(delivered, addr)
	}
	if len(delivered) == 0 {
		return nil, lastErr
	}
	return &Outcome{
		Strategy:  RawAddressFallback,
		Detail:    fmt.Sprintf("sent to %d/%d recipients", len(delivered), len(addresses)),
		Addresses: delivered,
	}, nil
}

func (e *Engine) sendNewChat(ctx context.Context, addresses []string, body string) (*Outcome, error) {
	args := append([]string{body}, addresses...)
	if _, err := e.run.Run(ctx, osa.ScriptCreateChatAndSend, args...); err != nil {
		return nil, err
	}
	return &Outcome{
		Strategy:  NewConversationCreation,
		Detail:    fmt.Sprintf("sent in new conversation with %d participants", len(addresses)),
		Addresses: addresses,
	}, nil
}
