package manage

import (
	"strings"
)

const (
	DefaultPython = "python"
	AdminScript   = "manage.py"
)

// Build assembles the manage.py command line for validated params.
// Tokens are joined with single spaces and never quoted.
func Build(python string, p Params) string {
	if python == "" {
		python = DefaultPython
	}
	tokens := []string{python, AdminScript, string(p.Command)}

	if p.Command.NoInput() {
		tokens = append(tokens, "--noinput")
	}

	for _, param := range generalParams {
		if v := p.Value(param); v != "" {
			tokens = append(tokens, "--"+param+"="+v)
		}
	}

	for _, param := range booleanParams {
		if p.Value(param) != "" {
			tokens = append(tokens, "--"+param)
		}
	}

	// database is accepted by Validate but never emitted.
	for _, param := range suffixParams {
		if v := p.Value(param); v != "" {
			tokens = append(tokens, v)
		}
	}

	return strings.Join(tokens, " ")
}
