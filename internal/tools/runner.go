package tools

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultShell interprets command lines handed to ExecRunner.
const DefaultShell = "/bin/sh"

// Env is the execution environment handed to one child process.
// It never touches the calling process's own environment.
type Env struct {
	// PathPrefix entries are prepended to the child's PATH in order.
	PathPrefix []string
	// Vars are exported into the child environment.
	Vars map[string]string
}

// IsZero reports whether the environment leaves the child untouched.
func (e Env) IsZero() bool {
	return len(e.PathPrefix) == 0 && len(e.Vars) == 0
}

// SearchPath joins the prefix entries in front of base.
func (e Env) SearchPath(base string) string {
	if len(e.PathPrefix) == 0 {
		return base
	}
	prefix := strings.Join(e.PathPrefix, string(os.PathListSeparator))
	if base == "" {
		return prefix
	}
	return prefix + string(os.PathListSeparator) + base
}

func (e Env) sortedVarNames() []string {
	names := make([]string, 0, len(e.Vars))
	for name := range e.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command is one shell command line plus where and how it runs.
type Command struct {
	Line string
	Dir  string
	Env  Env
}

// CommandRunner abstracts shell command execution for runtime adapters.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]byte, []byte, int32, error)
}

// PathReporter is implemented by runners that can tell which PATH a child saw.
type PathReporter interface {
	SearchPath(cmd Command) string
}

// ExecRunner executes commands on the local host through DefaultShell.
type ExecRunner struct {
	// Shell overrides DefaultShell when set.
	Shell string
}

// Run executes cmd.Line with sh -c, capturing stdout and stderr separately.
func (r ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, []byte, int32, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	c := exec.CommandContext(ctx, shell, "-c", cmd.Line)
	c.Dir = ExpandHome(cmd.Dir)
	if !cmd.Env.IsZero() {
		c.Env = r.environ(localEnv(cmd.Env))
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// SearchPath reports the PATH the child process receives.
func (r ExecRunner) SearchPath(cmd Command) string {
	return localEnv(cmd.Env).SearchPath(os.Getenv("PATH"))
}

// localEnv resolves "~/" the way the remote shell would.
func localEnv(env Env) Env {
	out := Env{}
	for _, entry := range env.PathPrefix {
		out.PathPrefix = append(out.PathPrefix, ExpandHome(entry))
	}
	if len(env.Vars) > 0 {
		out.Vars = make(map[string]string, len(env.Vars))
		for name, value := range env.Vars {
			out.Vars[name] = ExpandHome(value)
		}
	}
	return out
}

// ExpandHome resolves a leading "~" against the local home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func (r ExecRunner) environ(env Env) []string {
	base := os.Environ()
	out := make([]string, 0, len(base)+len(env.Vars)+1)
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if name == "PATH" {
			continue
		}
		if _, overridden := env.Vars[name]; overridden {
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "PATH="+env.SearchPath(os.Getenv("PATH")))
	for _, name := range env.sortedVarNames() {
		if name == "PATH" {
			continue
		}
		out = append(out, name+"="+env.Vars[name])
	}
	return out
}
