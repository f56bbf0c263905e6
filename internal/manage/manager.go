package manage

import (
	"context"
	"strings"
	"time"

	"github.com/danmuck/managectl/internal/observability"
	"github.com/danmuck/managectl/internal/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlreadyExistsOut replaces stdout when createcachetable finds its table in place.
const AlreadyExistsOut = "Already exists."

// Result is the structured report of one successful run.
// The parameter echo fields are always present, used or not.
type Result struct {
	RunID      string     `json:"run_id" yaml:"run_id"`
	Command    Subcommand `json:"command" yaml:"command"`
	Changed    Changes    `json:"changed" yaml:"changed"`
	Classified bool       `json:"classified" yaml:"classified"`
	Out        string     `json:"out" yaml:"out"`
	Cmd        string     `json:"cmd" yaml:"cmd"`
	AppPath    string     `json:"app_path" yaml:"app_path"`
	Virtualenv string     `json:"virtualenv" yaml:"virtualenv"`
	Settings   string     `json:"settings" yaml:"settings"`
	PythonPath string     `json:"pythonpath" yaml:"pythonpath"`
}

// Manager runs manage.py subcommands through a command runner.
type Manager struct {
	Runner tools.CommandRunner
	// Python is the interpreter token; DefaultPython when empty.
	Python string
	// VirtualenvTool is the environment creation executable; DefaultVirtualenvTool when empty.
	VirtualenvTool string
}

// NewManager constructs a manager with the local runner when runner is nil.
func NewManager(runner tools.CommandRunner) *Manager {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Manager{Runner: runner}
}

// Run parses raw parameters and executes them.
func (m *Manager) Run(ctx context.Context, raw map[string]string) (Result, error) {
	p, err := ParseParams(raw)
	if err != nil {
		observability.RecordRun(strings.TrimSpace(raw[ParamCommand]), observability.OutcomeFailed, 0)
		return Result{}, err
	}
	return m.Execute(ctx, p)
}

// Execute validates p, prepares its environment, runs the command and classifies output.
func (m *Manager) Execute(ctx context.Context, p Params) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	runID := uuid.NewString()
	logger := log.With().
		Str("run_id", runID).
		Str("command", string(p.Command)).
		Str("app_path", p.AppPath).
		Logger()

	res, err := m.execute(ctx, runID, p)
	outcome := observability.OutcomeUnchanged
	switch {
	case err != nil:
		outcome = observability.OutcomeFailed
		logger.Error().Err(err).Msg("manage run failed")
	case !res.Classified:
		outcome = observability.OutcomeUnclassified
		logger.Info().Msg("manage run finished without classifier")
	case res.Changed.Changed():
		outcome = observability.OutcomeChanged
		logger.Info().Int("changes", len(res.Changed)).Msg("manage run changed state")
	default:
		logger.Info().Msg("manage run unchanged")
	}
	observability.RecordRun(string(p.Command), outcome, time.Since(start))
	return res, err
}

func (m *Manager) execute(ctx context.Context, runID string, p Params) (Result, error) {
	if err := ValidateParams(p); err != nil {
		return Result{}, err
	}

	runner := m.runner()
	env, err := EnvPreparer{Runner: runner, Tool: m.VirtualenvTool}.Prepare(ctx, p.Virtualenv)
	if err != nil {
		return Result{}, err
	}

	cmd := tools.Command{
		Line: Build(m.Python, p),
		Dir:  p.AppPath,
		Env:  env,
	}
	log.Debug().Str("run_id", runID).Str("cmd", cmd.Line).Str("dir", cmd.Dir).Msg("manage exec")

	stdout, stderr, exitCode, runErr := runner.Run(ctx, cmd)
	out := string(stdout)
	if runErr != nil || exitCode != 0 {
		if !alreadyExists(p.Command, string(stderr)) {
			return Result{}, &Failure{
				Kind:     ErrExecution,
				Msg:      outputMsg(out, string(stderr)),
				Cmd:      cmd.Line,
				Stdout:   out,
				Stderr:   string(stderr),
				ExitCode: exitCode,
				Path:     searchPath(runner, cmd),
				Err:      runErr,
			}
		}
		out = AlreadyExistsOut
	}

	outcome := Classify(p.Command, out)
	return Result{
		RunID:      runID,
		Command:    p.Command,
		Changed:    outcome.Changes,
		Classified: outcome.Classified,
		Out:        out,
		Cmd:        cmd.Line,
		AppPath:    p.AppPath,
		Virtualenv: p.Virtualenv,
		Settings:   p.Settings,
		PythonPath: p.PythonPath,
	}, nil
}

func (m *Manager) runner() tools.CommandRunner {
	if m.Runner == nil {
		return tools.ExecRunner{}
	}
	return m.Runner
}

// alreadyExists matches the English error createcachetable prints for an existing table.
func alreadyExists(s Subcommand, stderr string) bool {
	return s == CreateCacheTable && strings.Contains(stderr, "table") && strings.Contains(stderr, "already exists")
}

func searchPath(runner tools.CommandRunner, cmd tools.Command) string {
	if reporter, ok := runner.(tools.PathReporter); ok {
		return reporter.SearchPath(cmd)
	}
	return cmd.Env.SearchPath("$PATH")
}
