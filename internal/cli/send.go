package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sgrimes/msgcourier/internal/protocol"
)

// SendOptions holds flags for the send command. Exactly one of the
// targeting flags must be used.
type SendOptions struct {
	*RootOptions
	ChatID  string
	To      []string
	Name    string
	Contact string
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send <body...>",
		Short: "Deliver a message to a chat, name, contact, or address",
		Long: `Deliver a message body through the automation layer, falling back
through delivery strategies until one lands.

Target exactly one of:
  --chat-id   an identifier from resolve
  --to        one or more raw addresses (repeatable or comma-separated)
  --name      an exact conversation display name
  --contact   a contact name looked up in the address book

Example:
  msgcourier send --chat-id "iMessage;-;+15551234567" on my way
  msgcourier send --to +15551234567,+15559876543 running late`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ChatID, "chat-id", "", "chat identifier to send to")
	cmd.Flags().StringSliceVar(&opts.To, "to", nil, "raw recipient addresses")
	cmd.Flags().StringVar(&opts.Name, "name", "", "conversation display name to send to")
	cmd.Flags().StringVar(&opts.Contact, "contact", "", "contact name to send to")

	return cmd
}

func runSend(opts *SendOptions, body string, cmd *cobra.Command) error {
	targets := 0
	req := protocol.Request{Body: body}
	if opts.ChatID != "" {
		targets++
		req.Action = protocol.ActionSend
		req.ChatID = opts.ChatID
	}
	if len(opts.To) > 0 {
		targets++
		req.Action = protocol.ActionSend
		req.To = opts.To
	}
	if opts.Name != "" {
		targets++
		req.Action = protocol.ActionSendByDisplayName
		req.Name = opts.Name
	}
	if opts.Contact != "" {
		targets++
		req.Action = protocol.ActionSendByContactName
		req.Contact = opts.Contact
	}
	if targets != 1 {
		return NewExitError(ExitCommandError, "exactly one of --chat-id, --to, --name, --contact is required")
	}

	handler, cleanup := buildHandler(opts.Config, opts.Logger)
	defer cleanup()

	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp := handler.Handle(cmd.Context(), raw)

	if opts.Format == "json" {
		return protocol.Encode(cmd.OutOrStdout(), resp)
	}

	sr, ok := resp.(protocol.SendResponse)
	if !ok {
		return respError(resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sr.Detail)
	return nil
}
