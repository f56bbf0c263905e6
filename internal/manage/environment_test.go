package manage

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/managectl/internal/testutil/testlog"
	"github.com/danmuck/managectl/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareSkipsWithoutVirtualenv(t *testing.T) {
	testlog.Start(t)
	r := newFakeRunner()
	env, err := EnvPreparer{Runner: r}.Prepare(context.Background(), "  ")
	require.NoError(t, err)
	assert.True(t, env.IsZero())
	assert.Empty(t, r.commands)
}

func TestPrepareCreatesMissingVirtualenv(t *testing.T) {
	testlog.Start(t)
	r := newFakeRunner().
		on("command -v", runResult{stdout: "/usr/bin/virtualenv\n"}).
		on("test -f", runResult{exitCode: 1, err: errors.New("exit status 1")}).
		on("'/usr/bin/virtualenv'", runResult{stdout: "created virtual environment"})

	env, err := EnvPreparer{Runner: r}.Prepare(context.Background(), "/srv/env")
	require.NoError(t, err)
	assert.Equal(t, tools.Env{
		PathPrefix: []string{"/srv/env/bin"},
		Vars:       map[string]string{"VIRTUAL_ENV": "/srv/env"},
	}, env)
	assert.Equal(t, []string{
		"command -v 'virtualenv'",
		"test -f '/srv/env/bin/activate'",
		"'/usr/bin/virtualenv' '/srv/env'",
	}, r.lines())
}

func TestPrepareReusesExistingVirtualenv(t *testing.T) {
	testlog.Start(t)
	r := newFakeRunner().
		on("command -v", runResult{stdout: "/usr/bin/virtualenv\n"}).
		on("test -f", runResult{})

	env, err := EnvPreparer{Runner: r, Tool: "virtualenv"}.Prepare(context.Background(), "~/envs/site")
	require.NoError(t, err)
	assert.Equal(t, []string{"~/envs/site/bin"}, env.PathPrefix)
	assert.Equal(t, []string{
		"command -v 'virtualenv'",
		`test -f "$HOME"/'envs/site/bin/activate'`,
	}, r.lines())
}

func TestPrepareMissingToolIsFatal(t *testing.T) {
	testlog.Start(t)
	r := newFakeRunner().on("command -v", runResult{exitCode: 1, err: errors.New("exit status 1")})

	_, err := EnvPreparer{Runner: r, Tool: "virtualenv-3"}.Prepare(context.Background(), "/srv/env")
	require.ErrorIs(t, err, ErrEnvironment)
	assert.Contains(t, err.Error(), "failed to find required executable virtualenv-3")
	assert.Len(t, r.commands, 1)
}

func TestPrepareCreationFailureCarriesOutput(t *testing.T) {
	testlog.Start(t)
	r := newFakeRunner().
		on("command -v", runResult{stdout: "/usr/bin/virtualenv"}).
		on("test -f", runResult{exitCode: 1}).
		on("'/usr/bin/virtualenv'", runResult{stdout: "partial", stderr: "permission denied", exitCode: 3, err: errors.New("exit status 3")})

	_, err := EnvPreparer{Runner: r}.Prepare(context.Background(), "/srv/env")
	require.ErrorIs(t, err, ErrEnvironment)

	f := AsFailure(err)
	assert.Equal(t, "'/usr/bin/virtualenv' '/srv/env'", f.Cmd)
	assert.Equal(t, "partial", f.Stdout)
	assert.Equal(t, "permission denied", f.Stderr)
	assert.Equal(t, int32(3), f.ExitCode)
	assert.Equal(t, "stdout: partial\nstderr: permission denied", f.Msg)
}

func TestPrepareUninspectableMarkerIsFatal(t *testing.T) {
	testlog.Start(t)
	r := newFakeRunner().
		on("command -v", runResult{stdout: "/usr/bin/virtualenv"}).
		on("test -f", runResult{exitCode: 255, err: errors.New("connection lost")})

	_, err := EnvPreparer{Runner: r}.Prepare(context.Background(), "/srv/env")
	require.ErrorIs(t, err, ErrEnvironment)
	assert.Len(t, r.commands, 2)
}
