package manage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamsResolvesAliases(t *testing.T) {
	p, err := ParseParams(map[string]string{
		"command":     "test",
		"app_path":    "/srv/app",
		"python_path": "/srv/lib",
		"virtual_env": "/srv/env",
		"fail_fast":   "yes",
		"apps":        "blog shop",
	})
	require.NoError(t, err)
	assert.Equal(t, Params{
		Command:    Test,
		AppPath:    "/srv/app",
		PythonPath: "/srv/lib",
		Virtualenv: "/srv/env",
		Failfast:   true,
		Apps:       "blog shop",
	}, p)
}

func TestParseParamsBooleanForms(t *testing.T) {
	for raw, want := range map[string]bool{
		"yes": true, "True": true, "on": true, "1": true, "y": true,
		"no": false, "FALSE": false, "off": false, "0": false, "": false,
	} {
		p, err := ParseParams(map[string]string{"command": "test", "app_path": "/a", "failfast": raw})
		require.NoError(t, err, raw)
		assert.Equal(t, want, p.Failfast, raw)
	}

	_, err := ParseParams(map[string]string{"command": "test", "app_path": "/a", "failfast": "maybe"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "must be a boolean")
}

func TestParseParamsRejectsUnknownNames(t *testing.T) {
	_, err := ParseParams(map[string]string{"command": "flush", "app_path": "/a", "verbosity": "2", "color": "no"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "unsupported parameters: color, verbosity")
}

func TestParseParamsRejectsConflictingAliases(t *testing.T) {
	_, err := ParseParams(map[string]string{
		"command":     "flush",
		"app_path":    "/a",
		"pythonpath":  "/one",
		"python_path": "/two",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "pythonpath|python_path")
}

func TestParseParamsRequiresCommandAndAppPath(t *testing.T) {
	_, err := ParseParams(map[string]string{"app_path": "/a"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "command")

	_, err = ParseParams(map[string]string{"command": "migrate", "app_path": "/a"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "must be one of")

	_, err = ParseParams(map[string]string{"command": "syncdb"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "app_path")

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.True(t, f.Report().Failed)
}

func TestParamsMapRoundTrip(t *testing.T) {
	raw := map[string]string{
		"command":     "loaddata",
		"app_path":    "/srv/app",
		"fixtures":    "a.json b.json",
		"database":    "replica",
		"settings":    "site.settings",
		"virtualenv":  "/srv/env",
		"pythonpath":  "/srv/lib",
		"cache_table": "",
	}
	p, err := ParseParams(raw)
	require.NoError(t, err)

	again, err := ParseParams(p.Map())
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.NotContains(t, p.Map(), "cache_table")
}
