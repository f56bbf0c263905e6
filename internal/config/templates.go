package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# managectl configuration
#
# apps are exposed as seeds "django.<id>"; host names a [[hosts]] entry or "local".
# Request parameters may override settings and pythonpath, never app_path or virtualenv.

`

// TemplateConfig is DefaultConfig with one local and one remote example app.
func TemplateConfig() Config {
	cfg := DefaultConfig()
	cfg.Hosts = []HostConfig{{
		Name:       "web-1",
		Host:       "web-1.internal",
		User:       "deploy",
		KeyPath:    "~/.ssh/id_ed25519",
		KnownHosts: "~/.ssh/known_hosts",
		Timeout:    "10s",
	}}
	cfg.Apps = []AppConfig{
		{
			ID:       "blog",
			Host:     LocalHost,
			AppPath:  "/srv/blog",
			Settings: "blog.settings",
		},
		{
			ID:         "shop",
			Host:       "web-1",
			AppPath:    "/srv/shop",
			Settings:   "shop.settings.production",
			PythonPath: "/srv/shop/lib",
			Virtualenv: "/srv/shop/env",
		},
	}
	return cfg
}

// Template renders TemplateConfig as TOML.
func Template() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(templateHeader)
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(TemplateConfig()); err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTemplate writes Template to path, refusing to replace a file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	data, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
