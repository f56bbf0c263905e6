package tools

import (
	"strings"
)

// ShellEscape single-quotes value for POSIX shells.
func ShellEscape(value string) string {
	if value == "" {
		return "''"
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// QuotePath escapes path like ShellEscape but leaves a leading "~/" to the shell as $HOME.
func QuotePath(path string) string {
	if path == "~" {
		return `"$HOME"`
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if rest == "" {
			return `"$HOME"/`
		}
		return `"$HOME"/` + ShellEscape(rest)
	}
	return ShellEscape(path)
}

// JoinCommand escapes every token and joins them with single spaces.
func JoinCommand(cmd string, args []string) string {
	if len(args) == 0 {
		return ShellEscape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(ShellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(ShellEscape(arg))
	}

	return builder.String()
}

// Prelude renders the directory change and environment exports that must precede
// cmd.Line when it runs through a shell the caller does not control.
func Prelude(cmd Command) string {
	parts := make([]string, 0, 3)
	if cmd.Dir != "" {
		parts = append(parts, "cd "+QuotePath(cmd.Dir))
	}
	if len(cmd.Env.PathPrefix) > 0 {
		quoted := make([]string, 0, len(cmd.Env.PathPrefix)+1)
		for _, entry := range cmd.Env.PathPrefix {
			quoted = append(quoted, QuotePath(entry))
		}
		quoted = append(quoted, `"$PATH"`)
		parts = append(parts, "export PATH="+strings.Join(quoted, ":"))
	}
	if len(cmd.Env.Vars) > 0 {
		exports := make([]string, 0, len(cmd.Env.Vars))
		for _, name := range cmd.Env.sortedVarNames() {
			if name == "PATH" {
				continue
			}
			exports = append(exports, name+"="+QuotePath(cmd.Env.Vars[name]))
		}
		if len(exports) > 0 {
			parts = append(parts, "export "+strings.Join(exports, " "))
		}
	}
	return strings.Join(parts, " && ")
}

// ShellLine is cmd.Line prefixed with its Prelude.
func ShellLine(cmd Command) string {
	prelude := Prelude(cmd)
	if prelude == "" {
		return cmd.Line
	}
	return prelude + " && " + cmd.Line
}
