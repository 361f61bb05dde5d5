// Package cli wires the cobra command tree. The root command with no
// subcommand speaks the stdin/stdout protocol: one JSON request in,
// one JSON response out. Subcommands wrap the same handlers for
// interactive use.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgrimes/msgcourier/internal/config"
)

// RootOptions holds global flags and the resolved runtime pieces
// every command shares.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Config config.Config
	Logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the msgcourier command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "msgcourier",
		Short: "Resolve conversations and deliver messages through Messages.app",
		Long: `msgcourier resolves chat and contact names against the local
Messages and AddressBook datastores and delivers messages through the
macOS automation layer, falling back through delivery strategies until
one lands.

With no subcommand it reads a single JSON request from stdin and
writes a single JSON response to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			opts.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandle(opts, cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(NewHandleCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewContactsCommand(opts))
	cmd.AddCommand(NewDoctorCommand(opts))

	return cmd
}

// newLogger builds the stderr logger. stdout belongs to the protocol
// response, so every sink points at stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
