package manage

import (
	"context"
	"strings"

	"github.com/danmuck/managectl/internal/tools"
)

type runResult struct {
	stdout   string
	stderr   string
	exitCode int32
	err      error
}

// fakeRunner answers by line prefix and records every command it sees.
type fakeRunner struct {
	commands []tools.Command
	replies  map[string]runResult
	fallback runResult
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{replies: make(map[string]runResult)}
}

func (r *fakeRunner) on(prefix string, res runResult) *fakeRunner {
	r.replies[prefix] = res
	return r
}

func (r *fakeRunner) Run(_ context.Context, cmd tools.Command) ([]byte, []byte, int32, error) {
	r.commands = append(r.commands, cmd)
	res := r.fallback
	best := -1
	for prefix, candidate := range r.replies {
		if strings.HasPrefix(cmd.Line, prefix) && len(prefix) > best {
			res = candidate
			best = len(prefix)
		}
	}
	return []byte(res.stdout), []byte(res.stderr), res.exitCode, res.err
}

func (r *fakeRunner) lines() []string {
	out := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd.Line)
	}
	return out
}
