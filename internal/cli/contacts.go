package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgrimes/msgcourier/internal/protocol"
)

// NewContactsCommand creates the contacts command.
func NewContactsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts <name>",
		Short: "List the raw addresses filed under a contact name",
		Long: `Look a name up in the address book and print every phone number and
email filed under matching contacts.

Example:
  msgcourier contacts "jon"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContacts(opts, args[0], cmd)
		},
	}
}

func runContacts(opts *RootOptions, name string, cmd *cobra.Command) error {
	handler, cleanup := buildHandler(opts.Config, opts.Logger)
	defer cleanup()

	raw, err := json.Marshal(protocol.Request{Action: protocol.ActionLookupHandles, Contact: name})
	if err != nil {
		return err
	}
	resp := handler.Handle(cmd.Context(), raw)

	if opts.Format == "json" {
		return protocol.Encode(cmd.OutOrStdout(), resp)
	}

	hr, ok := resp.(protocol.HandlesResponse)
	if !ok {
		return respError(resp)
	}
	if len(hr.Handles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no handles found")
		return nil
	}
	for _, h := range hr.Handles {
		fmt.Fprintln(cmd.OutOrStdout(), h)
	}
	return nil
}
