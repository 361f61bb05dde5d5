package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sgrimes/msgcourier/internal/protocol"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Fuzzy bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <query>",
		Short: "List conversations matching a name or address",
		Long: `Rank conversations in the Messages datastore against a free-text
query: exact display-name matches first, then prefix matches, then any
substring hit on names, participant addresses, or identifiers.

Example:
  msgcourier resolve "Mom"
  msgcourier resolve --fuzzy "D1 Hater"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Fuzzy, "fuzzy", false, "score candidates fuzzily instead of by substring rank")

	return cmd
}

func runResolve(opts *ResolveOptions, query string, cmd *cobra.Command) error {
	handler, cleanup := buildHandler(opts.Config, opts.Logger)
	defer cleanup()

	action := protocol.ActionResolve
	if opts.Fuzzy {
		action = protocol.ActionResolveFuzzy
	}
	raw, err := json.Marshal(protocol.Request{Action: action, Query: query})
	if err != nil {
		return err
	}
	resp := handler.Handle(cmd.Context(), raw)

	if opts.Format == "json" {
		return protocol.Encode(cmd.OutOrStdout(), resp)
	}

	rr, ok := resp.(protocol.ResolveResponse)
	if !ok {
		return respError(resp)
	}
	if len(rr.Results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no conversations matched")
		return nil
	}
	for _, c := range rr.Results {
		name := c.DisplayName
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
			c.ChatID, name, strings.Join(c.Participants, ", "))
	}
	return nil
}

// respError turns a protocol error response into a command error; any
// other unexpected shape becomes a generic one.
func respError(resp any) error {
	if er, ok := resp.(protocol.ErrorResponse); ok {
		return NewExitError(ExitFailure, er.Error)
	}
	return NewExitError(ExitFailure, "unexpected response shape")
}
