package django

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/managectl/internal/manage"
	"github.com/danmuck/managectl/internal/seeds"
	"github.com/rs/zerolog/log"
)

const IDPrefix = "django."

var ErrFixedParam = errors.New("parameter is fixed by the seed configuration")

// App is the configured checkout one seed drives.
type App struct {
	ID          string
	Name        string
	Description string
	AppPath     string
	Settings    string
	PythonPath  string
	Virtualenv  string
}

// Seed adapts one Django checkout to the seed execution boundary.
type Seed struct {
	app     App
	manager *manage.Manager
}

// NewSeed constructs a seed for app. A bare id is prefixed with IDPrefix.
func NewSeed(app App, manager *manage.Manager) Seed {
	if manager == nil {
		manager = manage.NewManager(nil)
	}
	app.ID = SeedID(app.ID)
	if strings.TrimSpace(app.Name) == "" {
		app.Name = strings.TrimPrefix(app.ID, IDPrefix)
	}
	if strings.TrimSpace(app.Description) == "" {
		app.Description = "Django manage.py at " + app.AppPath
	}
	return Seed{app: app, manager: manager}
}

// SeedID normalizes a configured app id into a seed id.
func SeedID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, IDPrefix) {
		return id
	}
	return IDPrefix + id
}

// Metadata returns stable identity and display data.
func (s Seed) Metadata() seeds.SeedMetadata {
	return seeds.SeedMetadata{
		ID:          s.app.ID,
		Name:        s.app.Name,
		Description: s.app.Description,
	}
}

// Operations lists the allow-listed subcommands.
func (s Seed) Operations() []seeds.OperationSpec {
	ops := make([]seeds.OperationSpec, 0, len(manage.Subcommands))
	for _, sub := range manage.Subcommands {
		ops = append(ops, seeds.OperationSpec{
			Name:        string(sub),
			Description: sub.Describe(),
			Idempotent:  idempotent(sub),
		})
	}
	return ops
}

// Execute runs action with args layered over the configured app defaults.
// app_path and virtualenv come from configuration only.
func (s Seed) Execute(ctx context.Context, action string, args map[string]string) (seeds.SeedResult, error) {
	act := strings.TrimSpace(action)
	if !seeds.HasOperation(s, act) {
		log.Warn().Str("seed", s.app.ID).Str("action", act).Msg("unknown seed action")
		return seeds.SeedResult{
			Status:   "error",
			Stderr:   []byte(fmt.Sprintf("unknown action: %s\n", act)),
			ExitCode: 64,
		}, fmt.Errorf("%w: %s", seeds.ErrUnknownAction, act)
	}

	raw, err := s.params(act, args)
	if err != nil {
		return s.failed(err), err
	}

	res, err := s.manager.Run(ctx, raw)
	if err != nil {
		return s.failed(err), err
	}
	return seeds.SeedResult{
		Status:   "ok",
		Stdout:   []byte(res.Out),
		ExitCode: 0,
		Report:   res,
	}, nil
}

func (s Seed) params(action string, args map[string]string) (map[string]string, error) {
	raw := map[string]string{
		manage.ParamCommand:    action,
		manage.ParamAppPath:    s.app.AppPath,
		manage.ParamSettings:   s.app.Settings,
		manage.ParamPythonPath: s.app.PythonPath,
		manage.ParamVirtualenv: s.app.Virtualenv,
	}
	// spelled remembers which request name set each canonical parameter.
	spelled := make(map[string]string, len(args))
	for name, value := range args {
		canonical, ok := manage.CanonicalParam(name)
		if !ok {
			// Unknown names pass through so the manager reports them.
			raw[name] = value
			continue
		}
		switch canonical {
		case manage.ParamCommand, manage.ParamAppPath, manage.ParamVirtualenv:
			return nil, &manage.Failure{
				Kind: manage.ErrValidation,
				Msg:  fmt.Sprintf("%s is fixed for seed %s", canonical, s.app.ID),
				Err:  ErrFixedParam,
			}
		}
		if prev, dup := spelled[canonical]; dup && args[prev] != value {
			names := []string{prev, name}
			sort.Strings(names)
			return nil, &manage.Failure{
				Kind: manage.ErrValidation,
				Msg:  fmt.Sprintf("parameters are mutually exclusive: %s", strings.Join(names, "|")),
			}
		}
		spelled[canonical] = name
		raw[canonical] = value
	}
	return raw, nil
}

func (s Seed) failed(err error) seeds.SeedResult {
	f := manage.AsFailure(err)
	exitCode := f.ExitCode
	switch {
	case errors.Is(err, manage.ErrValidation):
		exitCode = 64
	case exitCode == 0:
		exitCode = 1
	}
	return seeds.SeedResult{
		Status:   "error",
		Stdout:   []byte(f.Stdout),
		Stderr:   []byte(f.Stderr),
		ExitCode: exitCode,
		Report:   f.Report(),
	}
}

// idempotent marks subcommands whose repeat runs leave state as the first run did.
func idempotent(sub manage.Subcommand) bool {
	switch sub {
	case manage.Flush, manage.LoadData:
		return false
	default:
		return true
	}
}
