package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sgrimes/msgcourier/internal/protocol"
)

// NewHandleCommand creates the handle command: the explicit form of
// the default stdin/stdout protocol mode.
func NewHandleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "handle",
		Short: "Read one JSON request from stdin and answer on stdout",
		Long: `Read a single JSON request payload from stdin, dispatch it, and
write a single JSON response to stdout. Diagnostics go to stderr only.

Example:
  echo '{"action":"resolve","query":"Mom"}' | msgcourier handle`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandle(opts, cmd)
		},
	}
}

// runHandle is the protocol entry point shared by the root command
// and the handle subcommand. Every failure past this point is encoded
// into the response payload; the exit code stays zero so callers read
// the structured response rather than the process status.
func runHandle(opts *RootOptions, cmd *cobra.Command) error {
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "read request", err)
	}

	handler, cleanup := buildHandler(opts.Config, opts.Logger)
	defer cleanup()

	resp := handler.Handle(cmd.Context(), raw)
	if err := protocol.Encode(cmd.OutOrStdout(), resp); err != nil {
		return WrapExitError(ExitCommandError, "write response", err)
	}
	return nil
}
