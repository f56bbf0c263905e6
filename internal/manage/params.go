package manage

import (
	"sort"
	"strings"
)

// Parameter names as callers spell them.
const (
	ParamCommand    = "command"
	ParamAppPath    = "app_path"
	ParamSettings   = "settings"
	ParamPythonPath = "pythonpath"
	ParamVirtualenv = "virtualenv"
	ParamApps       = "apps"
	ParamCacheTable = "cache_table"
	ParamDatabase   = "database"
	ParamFailfast   = "failfast"
	ParamFixtures   = "fixtures"
)

// ParamNames lists every accepted parameter name.
var ParamNames = []string{
	ParamCommand,
	ParamAppPath,
	ParamSettings,
	ParamPythonPath,
	ParamVirtualenv,
	ParamApps,
	ParamCacheTable,
	ParamDatabase,
	ParamFailfast,
	ParamFixtures,
}

var paramAliases = map[string]string{
	"python_path": ParamPythonPath,
	"virtual_env": ParamVirtualenv,
	"fail_fast":   ParamFailfast,
}

// Params is the typed parameter set for one run. It is read-only after parsing.
type Params struct {
	Command    Subcommand
	AppPath    string
	Settings   string
	PythonPath string
	Virtualenv string
	Apps       string
	CacheTable string
	Database   string
	Failfast   bool
	Fixtures   string
}

// CanonicalParam resolves aliases to the canonical parameter name.
func CanonicalParam(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if canonical, ok := paramAliases[name]; ok {
		return canonical, true
	}
	for _, known := range ParamNames {
		if known == name {
			return name, true
		}
	}
	return "", false
}

// ParseParams turns raw string parameters into Params.
// Unknown names, duplicate spellings and malformed booleans are validation errors;
// subcommand compatibility is checked separately by Validate.
func ParseParams(raw map[string]string) (Params, error) {
	values := make(map[string]string, len(raw))
	var unknown []string
	for name, value := range raw {
		canonical, ok := CanonicalParam(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if prev, dup := values[canonical]; dup && prev != value {
			return Params{}, validationf("parameters are mutually exclusive: %s", aliasGroup(canonical))
		}
		values[canonical] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Params{}, validationf("unsupported parameters: %s", strings.Join(unknown, ", "))
	}

	command, err := ParseSubcommand(values[ParamCommand])
	if err != nil {
		return Params{}, err
	}

	failfast, err := parseBoolParam(ParamFailfast, values[ParamFailfast])
	if err != nil {
		return Params{}, err
	}

	p := Params{
		Command:    command,
		AppPath:    strings.TrimSpace(values[ParamAppPath]),
		Settings:   strings.TrimSpace(values[ParamSettings]),
		PythonPath: strings.TrimSpace(values[ParamPythonPath]),
		Virtualenv: strings.TrimSpace(values[ParamVirtualenv]),
		Apps:       strings.TrimSpace(values[ParamApps]),
		CacheTable: strings.TrimSpace(values[ParamCacheTable]),
		Database:   strings.TrimSpace(values[ParamDatabase]),
		Failfast:   failfast,
		Fixtures:   strings.TrimSpace(values[ParamFixtures]),
	}
	if p.AppPath == "" {
		return Params{}, validationf("missing required arguments: %s", ParamAppPath)
	}
	return p, nil
}

// Value returns the textual value of a parameter. Booleans render as "true" or "".
func (p Params) Value(name string) string {
	switch name {
	case ParamCommand:
		return string(p.Command)
	case ParamAppPath:
		return p.AppPath
	case ParamSettings:
		return p.Settings
	case ParamPythonPath:
		return p.PythonPath
	case ParamVirtualenv:
		return p.Virtualenv
	case ParamApps:
		return p.Apps
	case ParamCacheTable:
		return p.CacheTable
	case ParamDatabase:
		return p.Database
	case ParamFailfast:
		if p.Failfast {
			return "true"
		}
		return ""
	case ParamFixtures:
		return p.Fixtures
	default:
		return ""
	}
}

// Map renders the non-empty parameters back into raw form.
func (p Params) Map() map[string]string {
	out := make(map[string]string, len(ParamNames))
	for _, name := range ParamNames {
		if v := p.Value(name); v != "" {
			out[name] = v
		}
	}
	return out
}

// ParseBool normalizes the textual boolean forms operators write.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "t", "on", "1":
		return true, true
	case "no", "n", "false", "f", "off", "0", "":
		return false, true
	default:
		return false, false
	}
}

func parseBoolParam(name, raw string) (bool, error) {
	v, ok := ParseBool(raw)
	if !ok {
		return false, validationf("value of %s must be a boolean, got: %s", name, raw)
	}
	return v, nil
}

func aliasGroup(canonical string) string {
	names := []string{canonical}
	for alias, target := range paramAliases {
		if target == canonical {
			names = append(names, alias)
		}
	}
	sort.Strings(names[1:])
	return strings.Join(names, "|")
}
