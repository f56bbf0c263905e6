package manage

import (
	"encoding/json"
	"strings"
)

// LineFilter reports whether one stdout line shows a state change.
type LineFilter func(line string) bool

// Classifier decides which output lines of a successful run count as changes.
type Classifier interface {
	Match(line string) bool
}

// Match makes a LineFilter usable as a Classifier.
func (f LineFilter) Match(line string) bool {
	return f(line)
}

// classifiers is the static subcommand to classifier table.
// Subcommands absent here are reported as unclassified and never changed.
var classifiers = map[Subcommand]Classifier{
	CreateCacheTable: LineFilter(cacheTableCreated),
	Flush:            LineFilter(objectsInstalled),
	LoadData:         LineFilter(objectsInstalled),
	SyncDB:           LineFilter(tablesOrObjectsCreated),
}

func cacheTableCreated(line string) bool {
	return !strings.Contains(line, "Already exists")
}

func objectsInstalled(line string) bool {
	return strings.Contains(line, "Installed") && !strings.Contains(line, "Installed 0 object")
}

func tablesOrObjectsCreated(line string) bool {
	return strings.Contains(line, "Creating table ") || objectsInstalled(line)
}

// ClassifierFor returns the registered classifier for s.
func ClassifierFor(s Subcommand) (Classifier, bool) {
	c, ok := classifiers[s]
	return c, ok
}

// Changes is the set of output lines that showed a state change.
// Empty means unchanged; it serializes as false rather than an empty list.
type Changes []string

// Changed reports whether any line matched.
func (c Changes) Changed() bool {
	return len(c) > 0
}

func (c Changes) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte("false"), nil
	}
	return json.Marshal([]string(c))
}

func (c *Changes) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*c = nil
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*c = lines
	return nil
}

func (c Changes) MarshalYAML() (any, error) {
	if len(c) == 0 {
		return false, nil
	}
	return []string(c), nil
}

// Outcome is the classification of one successful run.
type Outcome struct {
	Changes    Changes
	Classified bool
}

// Classify applies the classifier registered for s to stdout split on newlines.
// With no classifier registered the outcome is unclassified and unchanged.
func Classify(s Subcommand, stdout string) Outcome {
	c, ok := ClassifierFor(s)
	if !ok {
		return Outcome{Classified: false}
	}
	var matched Changes
	for _, line := range strings.Split(stdout, "\n") {
		if c.Match(line) {
			matched = append(matched, line)
		}
	}
	return Outcome{Changes: matched, Classified: true}
}
