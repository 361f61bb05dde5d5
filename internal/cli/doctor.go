package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgrimes/msgcourier/internal/chatdb"
	"github.com/sgrimes/msgcourier/internal/contactsdb"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check read access to the Messages and AddressBook datastores",
		Long: `Verify that both datastores can be opened and read, printing
per-store detail. Exits 2 when the Messages datastore is unreadable;
a missing address book only degrades contact features and is reported
as a warning.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(opts, cmd)
		},
	}
}

func runDoctor(opts *RootOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	healthy := true

	status, err := chatdb.Check(opts.Config.MessagesDB)
	if err != nil {
		healthy = false
		fmt.Fprintf(out, "messages store: FAIL: %v\n", err)
		fmt.Fprintln(out, "  grant Full Disk Access to the calling application and retry")
	} else {
		fmt.Fprintln(out, "messages store: ok")
		for _, line := range status {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	contactStatus, err := contactsdb.Check(opts.Config.ContactsGlob)
	if err != nil {
		fmt.Fprintf(out, "contacts store: WARN: %v\n", err)
		fmt.Fprintln(out, "  contact name features degrade to raw addresses")
	} else {
		fmt.Fprintln(out, "contacts store: ok")
		for _, line := range contactStatus {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	if !healthy {
		return NewExitError(ExitCommandError, "messages datastore is not readable")
	}
	return nil
}
