package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArgsFileFormats(t *testing.T) {
	want := map[string]string{
		"command":  "test",
		"app_path": "/srv/blog",
		"apps":     "posts comments",
		"failfast": "true",
	}
	cases := map[string]string{
		"args.toml": `
command = "test"
app_path = "/srv/blog"
apps = ["posts", "comments"]
failfast = true
`,
		"args.yaml": `
command: test
app_path: /srv/blog
apps: [posts, comments]
failfast: true
`,
		"args.json": `{"command": "test", "app_path": "/srv/blog", "apps": ["posts", "comments"], "failfast": true}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := LoadArgsFile(writeFile(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadArgsFileRejectsNestedValues(t *testing.T) {
	_, err := LoadArgsFile(writeFile(t, "args.yaml", "command: flush\nsettings:\n  module: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings")
}

func TestLoadArgsFileRejectsUnknownExtension(t *testing.T) {
	_, err := LoadArgsFile(writeFile(t, "args.ini", "command=flush"))
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestFlattenArgsNumbersAndNulls(t *testing.T) {
	got, err := FlattenArgs(map[string]any{"database": nil, "apps": []any{"a", int64(2)}, "x": 1.5})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"apps": "a 2", "x": "1.5"}, got)
}
