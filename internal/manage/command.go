package manage

import (
	"fmt"
	"slices"
	"strings"
)

// Subcommand is one manage.py subcommand from the allow-list.
type Subcommand string

const (
	Cleanup          Subcommand = "cleanup"
	CreateCacheTable Subcommand = "createcachetable"
	Flush            Subcommand = "flush"
	LoadData         Subcommand = "loaddata"
	SyncDB           Subcommand = "syncdb"
	Test             Subcommand = "test"
	Validate         Subcommand = "validate"
)

// Subcommands lists every supported subcommand in catalog order.
var Subcommands = []Subcommand{
	Cleanup,
	CreateCacheTable,
	Flush,
	LoadData,
	SyncDB,
	Test,
	Validate,
}

// allowedParams maps a subcommand to the specific parameters it accepts.
var allowedParams = map[Subcommand][]string{
	Cleanup:          {},
	CreateCacheTable: {ParamCacheTable, ParamDatabase},
	Flush:            {ParamDatabase},
	LoadData:         {ParamDatabase, ParamFixtures},
	SyncDB:           {ParamDatabase},
	Test:             {ParamFailfast, ParamApps},
	Validate:         {},
}

// requiredParams maps a subcommand to the parameters it cannot run without.
var requiredParams = map[Subcommand][]string{
	LoadData:         {ParamFixtures},
	CreateCacheTable: {ParamCacheTable},
}

// noInputCommands prompt for confirmation unless told not to.
var noInputCommands = []Subcommand{Flush, SyncDB, Test}

var (
	// specificParams are only valid for the subcommands that allow them.
	specificParams = []string{ParamApps, ParamCacheTable, ParamDatabase, ParamFailfast, ParamFixtures}
	// generalParams are emitted as --name=value for any subcommand.
	generalParams = []string{ParamSettings, ParamPythonPath}
	// booleanParams are emitted as bare --name flags when true.
	booleanParams = []string{ParamFailfast}
	// suffixParams are appended as trailing tokens, in this order.
	suffixParams = []string{ParamApps, ParamCacheTable, ParamFixtures}
)

// ParseSubcommand resolves raw against the allow-list.
func ParseSubcommand(raw string) (Subcommand, error) {
	name := Subcommand(strings.TrimSpace(raw))
	if name == "" {
		return "", validationf("missing required arguments: %s", ParamCommand)
	}
	if !slices.Contains(Subcommands, name) {
		return "", validationf("value of %s must be one of: %s, got: %s", ParamCommand, subcommandList(), raw)
	}
	return name, nil
}

// Allows reports whether param may carry a value for s.
func (s Subcommand) Allows(param string) bool {
	return slices.Contains(allowedParams[s], param)
}

// Requires lists the parameters s cannot run without.
func (s Subcommand) Requires() []string {
	return slices.Clone(requiredParams[s])
}

// AllowedParams lists the specific parameters s accepts.
func (s Subcommand) AllowedParams() []string {
	return slices.Clone(allowedParams[s])
}

// NoInput reports whether s is run with --noinput.
func (s Subcommand) NoInput() bool {
	return slices.Contains(noInputCommands, s)
}

// Classified reports whether s has a registered output classifier.
func (s Subcommand) Classified() bool {
	_, ok := classifiers[s]
	return ok
}

func (s Subcommand) String() string {
	return string(s)
}

func subcommandList() string {
	names := make([]string, 0, len(Subcommands))
	for _, s := range Subcommands {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// CatalogEntry describes one subcommand for listings.
type CatalogEntry struct {
	Name       Subcommand `json:"name" yaml:"name"`
	Allowed    []string   `json:"allowed" yaml:"allowed"`
	Required   []string   `json:"required" yaml:"required"`
	NoInput    bool       `json:"noinput" yaml:"noinput"`
	Classified bool       `json:"classified" yaml:"classified"`
}

// Catalog describes every supported subcommand.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(Subcommands))
	for _, s := range Subcommands {
		out = append(out, CatalogEntry{
			Name:       s,
			Allowed:    s.AllowedParams(),
			Required:   s.Requires(),
			NoInput:    s.NoInput(),
			Classified: s.Classified(),
		})
	}
	return out
}

// Describe is a one-line human summary of s.
func (s Subcommand) Describe() string {
	parts := []string{fmt.Sprintf("run manage.py %s", s)}
	if req := s.Requires(); len(req) > 0 {
		parts = append(parts, "requires "+strings.Join(req, ", "))
	}
	if !s.Classified() {
		parts = append(parts, "never reports changes")
	}
	return strings.Join(parts, "; ")
}
