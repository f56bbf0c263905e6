package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadArgsFile reads run parameters from a .toml, .yaml/.yml or .json document.
// Values are flattened to strings; lists join with single spaces.
func LoadArgsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("args load failed (%s): %w", path, err)
	}

	doc := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".json":
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("args load failed (%s): unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("args parse failed (%s): %w", path, err)
	}

	out, err := FlattenArgs(doc)
	if err != nil {
		return nil, fmt.Errorf("args parse failed (%s): %w", path, err)
	}
	return out, nil
}

// FlattenArgs renders decoded scalar and list values as parameter strings.
func FlattenArgs(doc map[string]any) (map[string]string, error) {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(doc))
	for _, name := range names {
		value := doc[name]
		if value == nil {
			continue
		}
		s, err := flattenValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func flattenValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := flattenValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	case []string:
		return strings.Join(v, " "), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}
