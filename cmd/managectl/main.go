package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/managectl/internal/logging"
	"github.com/danmuck/managectl/internal/tools"
	"github.com/spf13/cobra"
)

// exitError carries a process exit code out of a command without printing twice.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// cli holds the streams and runner factory shared by all subcommands.
type cli struct {
	out       io.Writer
	errOut    io.Writer
	newRunner func(sshFlags) (tools.CommandRunner, error)
}

func main() {
	app := &cli{out: os.Stdout, errOut: os.Stderr, newRunner: sshFlags.runner}
	if err := app.root().Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "managectl: %v\n", err)
		os.Exit(1)
	}
}

func (a *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "managectl",
		Short:         "Run Django manage.py subcommands locally or over ssh",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime("managectl")
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(a.runCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.commandsCmd())
	root.AddCommand(a.configCmd())
	return root
}
