package manage

import (
	"context"
	"path"
	"strings"

	"github.com/danmuck/managectl/internal/tools"
	"github.com/rs/zerolog/log"
)

const DefaultVirtualenvTool = "virtualenv"

// EnvPreparer makes sure a virtualenv exists and describes how to run inside it.
type EnvPreparer struct {
	Runner tools.CommandRunner
	// Tool is the environment creation executable looked up on the target host.
	Tool string
}

// Prepare returns the execution environment for venv. An empty venv yields the zero Env
// and runs nothing. Creation only happens when the activation marker is missing.
func (e EnvPreparer) Prepare(ctx context.Context, venv string) (tools.Env, error) {
	venv = strings.TrimSpace(venv)
	if venv == "" {
		return tools.Env{}, nil
	}

	tool := e.Tool
	if tool == "" {
		tool = DefaultVirtualenvTool
	}

	toolPath, err := e.lookPath(ctx, tool)
	if err != nil {
		return tools.Env{}, err
	}

	binDir := path.Join(venv, "bin")
	activate := path.Join(binDir, "activate")
	exists, err := e.exists(ctx, activate)
	if err != nil {
		return tools.Env{}, err
	}
	if !exists {
		line := tools.ShellEscape(toolPath) + " " + tools.QuotePath(venv)
		log.Info().Str("virtualenv", venv).Str("tool", toolPath).Msg("creating virtualenv")
		stdout, stderr, exitCode, runErr := e.Runner.Run(ctx, tools.Command{Line: line})
		if runErr != nil || exitCode != 0 {
			return tools.Env{}, &Failure{
				Kind:     ErrEnvironment,
				Msg:      outputMsg(string(stdout), string(stderr)),
				Cmd:      line,
				Stdout:   string(stdout),
				Stderr:   string(stderr),
				ExitCode: exitCode,
				Err:      runErr,
			}
		}
	} else {
		log.Debug().Str("virtualenv", venv).Msg("virtualenv present")
	}

	return tools.Env{
		PathPrefix: []string{binDir},
		Vars:       map[string]string{"VIRTUAL_ENV": venv},
	}, nil
}

func (e EnvPreparer) lookPath(ctx context.Context, tool string) (string, error) {
	line := "command -v " + tools.ShellEscape(tool)
	stdout, _, exitCode, err := e.Runner.Run(ctx, tools.Command{Line: line})
	found := strings.TrimSpace(string(stdout))
	if err != nil || exitCode != 0 || found == "" {
		return "", &Failure{
			Kind:     ErrEnvironment,
			Msg:      "failed to find required executable " + tool,
			Cmd:      line,
			ExitCode: exitCode,
			Err:      err,
		}
	}
	if i := strings.IndexByte(found, '\n'); i >= 0 {
		found = found[:i]
	}
	return found, nil
}

func (e EnvPreparer) exists(ctx context.Context, file string) (bool, error) {
	line := "test -f " + tools.QuotePath(file)
	_, stderr, exitCode, err := e.Runner.Run(ctx, tools.Command{Line: line})
	switch {
	case exitCode == 0 && err == nil:
		return true, nil
	case exitCode == 1:
		return false, nil
	default:
		return false, &Failure{
			Kind:     ErrEnvironment,
			Msg:      "cannot inspect " + file,
			Cmd:      line,
			Stderr:   string(stderr),
			ExitCode: exitCode,
			Err:      err,
		}
	}
}
