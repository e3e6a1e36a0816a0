package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	APIUrl     string
	APITimeout time.Duration
}

// CreateFlags holds flags for the create command.
type CreateFlags struct {
	ID        string
	WorkDir   string
	Command   []string
	Autostart bool
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	createFlags := &CreateFlags{}

	cc := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createCreateCommand(cc, createFlags),
		createStartCommand(cc),
		createStopCommand(cc),
		createRemoveCommand(cc),
		createListCommand(cc),
		createLogsCommand(cc),
		createSendCommand(cc),
		createServeCommand(globalFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "consolr",
		Short: "Managed interactive console daemon and client",
		Long: `Consolr keeps long-running interactive processes alive behind
pseudo-terminals, records their recent output, and lets any number of
clients attach to a live session over WebSocket.

Examples:
  consolr serve --config consolr.toml
  consolr create --id mc --work-dir /srv/mc -- java -jar server.jar
  consolr send --id mc "say hello"
  consolr logs --id mc`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://localhost:5000/api)")
	root.PersistentFlags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return root
}

func createCreateCommand(cc command, f *CreateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create -- <command> [args...]",
		Short: "Register and immediately start a new console",
		Long: `Register a new console identity with its launch command and start it.
The command and its arguments follow the flag terminator.

Examples:
  consolr create --id mc --work-dir /srv/mc -- java -Xmx4G -jar server.jar nogui
  consolr create --id sh --work-dir /tmp --autostart=false -- /bin/sh -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Command = args
			return cc.Create(*f)
		},
	}
	cmd.Flags().StringVar(&f.ID, "id", "", "console identity (required)")
	cmd.Flags().StringVar(&f.WorkDir, "work-dir", "", "absolute working directory (required)")
	cmd.Flags().BoolVar(&f.Autostart, "autostart", true, "start automatically when the daemon boots")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("work-dir"); err != nil {
		panic(err)
	}
	return cmd
}

func createStartCommand(cc command) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a registered console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.Start(id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "console identity (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createStopCommand(cc command) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop a live console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.Stop(id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "console identity (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createRemoveCommand(cc command) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Stop a console and forget its launch record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.Remove(id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "console identity (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createListCommand(cc command) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered consoles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.List()
		},
	}
}

func createLogsCommand(cc command) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print a live console's buffered output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.Logs(id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "console identity (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createSendCommand(cc command) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Write a line of input to a live console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.Send(id, args[0])
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "console identity (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}
