package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/managectl/internal/config"
	"github.com/danmuck/managectl/internal/manage"
	"github.com/danmuck/managectl/internal/tools"
	"github.com/spf13/cobra"
)

// sshFlags selects the target host. An empty host runs locally.
type sshFlags struct {
	host                string
	port                string
	user                string
	key                 string
	knownHosts          string
	insecureSkipHostKey bool
	timeout             time.Duration
}

func (f sshFlags) runner() (tools.CommandRunner, error) {
	if strings.TrimSpace(f.host) == "" {
		return tools.ExecRunner{}, nil
	}
	if strings.TrimSpace(f.user) == "" || strings.TrimSpace(f.key) == "" {
		return nil, fmt.Errorf("--host requires --user and --key")
	}
	return tools.SSHRunner{
		Host:                        strings.TrimSpace(f.host),
		Port:                        strings.TrimSpace(f.port),
		User:                        strings.TrimSpace(f.user),
		KeyPath:                     tools.ExpandHome(strings.TrimSpace(f.key)),
		KnownHostsPath:              tools.ExpandHome(strings.TrimSpace(f.knownHosts)),
		InsecureSkipHostKeyChecking: f.insecureSkipHostKey,
		Timeout:                     f.timeout,
	}, nil
}

type runOptions struct {
	argsFile       string
	python         string
	virtualenvTool string
	output         string
	ssh            sshFlags
	params         map[string]*string
}

// flagName maps a parameter name to its command line flag.
func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}

func (a *cli) runCmd() *cobra.Command {
	opts := &runOptions{params: map[string]*string{}}
	cmd := &cobra.Command{
		Use:   "run [command]",
		Short: "Run one manage.py subcommand and print the result document",
		Long: "Run one manage.py subcommand in --app-path, optionally inside --virtualenv.\n" +
			"Parameters come from --args-file (toml, yaml or json) and flags; flags win.\n" +
			"Supported commands: " + strings.Join(subcommandNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	for _, name := range manage.ParamNames {
		value := new(string)
		opts.params[name] = value
		flags.StringVar(value, flagName(name), "", "manage parameter "+name)
		if name == manage.ParamFailfast {
			flags.Lookup(flagName(name)).NoOptDefVal = "true"
		}
	}
	flags.StringVar(&opts.argsFile, "args-file", "", "read parameters from a toml, yaml or json file")
	flags.StringVar(&opts.python, "python", "", "python interpreter (default \"python\")")
	flags.StringVar(&opts.virtualenvTool, "virtualenv-tool", "", "virtualenv creation tool (default \"virtualenv\")")
	flags.StringVarP(&opts.output, "output", "o", formatJSON, "output format: json or yaml")

	flags.StringVar(&opts.ssh.host, "host", "", "run on this ssh host instead of locally")
	flags.StringVar(&opts.ssh.port, "port", "", "ssh port (default 22)")
	flags.StringVar(&opts.ssh.user, "user", "", "ssh user")
	flags.StringVar(&opts.ssh.key, "key", "", "ssh private key path")
	flags.StringVar(&opts.ssh.knownHosts, "known-hosts", "", "known_hosts file for host key checking")
	flags.BoolVar(&opts.ssh.insecureSkipHostKey, "insecure-skip-host-key", false, "skip ssh host key verification")
	flags.DurationVar(&opts.ssh.timeout, "ssh-timeout", 0, "ssh dial timeout (default 10s)")
	return cmd
}

func (a *cli) run(cmd *cobra.Command, opts *runOptions, args []string) error {
	if err := checkFormat(opts.output); err != nil {
		return err
	}
	raw, err := collectParams(cmd, opts, args)
	if err != nil {
		return err
	}

	runner, err := a.newRunner(opts.ssh)
	if err != nil {
		return err
	}
	m := manage.NewManager(runner)
	if opts.python != "" {
		m.Python = opts.python
	}
	if opts.virtualenvTool != "" {
		m.VirtualenvTool = opts.virtualenvTool
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := m.Run(ctx, raw)
	if runErr != nil {
		if err := writeDocument(cmd.OutOrStdout(), opts.output, manage.AsFailure(runErr).Report()); err != nil {
			return err
		}
		return exitError{code: 1}
	}
	return writeDocument(cmd.OutOrStdout(), opts.output, res)
}

// collectParams layers the args file, then changed flags, then the positional command.
func collectParams(cmd *cobra.Command, opts *runOptions, args []string) (map[string]string, error) {
	raw := map[string]string{}
	if opts.argsFile != "" {
		fromFile, err := config.LoadArgsFile(opts.argsFile)
		if err != nil {
			return nil, err
		}
		for name, value := range fromFile {
			raw[name] = value
		}
	}
	for _, name := range manage.ParamNames {
		if cmd.Flags().Changed(flagName(name)) {
			setParam(raw, name, *opts.params[name])
		}
	}
	if len(args) == 1 {
		if cmd.Flags().Changed(flagName(manage.ParamCommand)) && *opts.params[manage.ParamCommand] != args[0] {
			return nil, fmt.Errorf("command given twice: %q and %q", *opts.params[manage.ParamCommand], args[0])
		}
		setParam(raw, manage.ParamCommand, args[0])
	}
	return raw, nil
}

// setParam replaces name and any alias of it already present in raw.
func setParam(raw map[string]string, name, value string) {
	for existing := range raw {
		if canonical, ok := manage.CanonicalParam(existing); ok && canonical == name {
			delete(raw, existing)
		}
	}
	raw[name] = value
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func subcommandNames() []string {
	names := make([]string, 0, len(manage.Subcommands))
	for _, sub := range manage.Subcommands {
		names = append(names, string(sub))
	}
	return names
}
