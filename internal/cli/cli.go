// Package cli parses habla's command line into a Parsed command.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandToggle  Command = "toggle"
	CommandStop    Command = "stop"
	CommandReset   Command = "reset"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// Parsed is the resolved invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

var commands = []struct {
	name  Command
	short string
}{
	{CommandServe, "Own the session and wait for toggle requests"},
	{CommandToggle, "Start listening, or stop when already listening"},
	{CommandStop, "Stop an active session"},
	{CommandReset, "Return a finished session to idle"},
	{CommandStatus, "Print the current session state"},
	{CommandDevices, "List available input devices"},
	{CommandDoctor, "Run configuration and environment checks"},
	{CommandVersion, "Print version information"},
}

// Parse resolves args without running anything. Help output is left to the
// caller so every entry point prints the same text.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	root := newRoot(&parsed)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func newRoot(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           "habla",
		Short:         "Speak, and get the translation",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command: %s", args[0])
			}
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
			}
			return nil
		},
	}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVar(&showVersion, "version", false, "Show version")
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "Config file path")
	root.SetHelpFunc(func(*cobra.Command, []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	})
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return err
	})

	for _, c := range commands {
		name := c.name
		root.AddCommand(&cobra.Command{
			Use:   string(name),
			Short: c.short,
			Args: func(_ *cobra.Command, args []string) error {
				if len(args) > 0 {
					return fmt.Errorf("unexpected arguments after command %q", name)
				}
				return nil
			},
			RunE: func(*cobra.Command, []string) error {
				parsed.Command = name
				parsed.ShowHelp = false
				return nil
			},
		})
	}
	return root
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  serve     Own the session and wait for toggle requests
  toggle    Start listening, or stop when already listening
  stop      Stop an active session
  reset     Return a finished session to idle
  status    Print the current session state
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/habla/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
