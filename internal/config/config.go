package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/managectl/internal/manage"
	"github.com/danmuck/managectl/internal/seeds"
	"github.com/danmuck/managectl/internal/seeds/django"
	"github.com/danmuck/managectl/internal/tools"
)

// LocalHost names the machine managectl itself runs on.
const LocalHost = "local"

// EnvAuthToken overrides auth_token so the secret can stay out of the file.
const EnvAuthToken = "MANAGECTL_AUTH_TOKEN"

// Config is the managectl agent and CLI configuration.
type Config struct {
	Name           string       `toml:"name"`
	Addr           string       `toml:"addr"`
	CorsOrigins    []string     `toml:"cors_origins"`
	Python         string       `toml:"python"`
	VirtualenvTool string       `toml:"virtualenv_tool"`
	AuthToken      string       `toml:"auth_token,omitempty"`
	Hosts          []HostConfig `toml:"hosts"`
	Apps           []AppConfig  `toml:"apps"`
}

// HostConfig is one ssh target.
type HostConfig struct {
	Name                string `toml:"name"`
	Host                string `toml:"host"`
	Port                string `toml:"port,omitempty"`
	User                string `toml:"user"`
	KeyPath             string `toml:"key_path"`
	KnownHosts          string `toml:"known_hosts,omitempty"`
	InsecureSkipHostKey bool   `toml:"insecure_skip_host_key,omitempty"`
	Timeout             string `toml:"timeout,omitempty"`
}

// AppConfig is one Django checkout exposed as a seed.
type AppConfig struct {
	ID          string `toml:"id"`
	Name        string `toml:"name,omitempty"`
	Description string `toml:"description,omitempty"`
	Host        string `toml:"host,omitempty"`
	AppPath     string `toml:"app_path"`
	Settings    string `toml:"settings,omitempty"`
	PythonPath  string `toml:"pythonpath,omitempty"`
	Virtualenv  string `toml:"virtualenv,omitempty"`
}

// DefaultConfig is the configuration used when no file overrides a key.
func DefaultConfig() Config {
	return Config{
		Name:           "managectl",
		Addr:           ":9200",
		CorsOrigins:    []string{"http://localhost:3000"},
		Python:         manage.DefaultPython,
		VirtualenvTool: manage.DefaultVirtualenvTool,
	}
}

// Load reads path over DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("python") {
		cfg.Python = strings.TrimSpace(raw.Python)
	}
	if meta.IsDefined("virtualenv_tool") {
		cfg.VirtualenvTool = strings.TrimSpace(raw.VirtualenvTool)
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}
	if token := strings.TrimSpace(os.Getenv(EnvAuthToken)); token != "" {
		cfg.AuthToken = token
	}
	cfg.Hosts = raw.Hosts
	cfg.Apps = raw.Apps

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross references and required keys.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("missing addr")
	}

	hosts := make(map[string]struct{}, len(cfg.Hosts))
	for i, h := range cfg.Hosts {
		if err := validateHost(h); err != nil {
			return fmt.Errorf("hosts[%d] invalid: %w", i, err)
		}
		if _, dup := hosts[h.Name]; dup {
			return fmt.Errorf("hosts[%d] invalid: duplicate name %q", i, h.Name)
		}
		hosts[h.Name] = struct{}{}
	}

	ids := make(map[string]struct{}, len(cfg.Apps))
	for i, app := range cfg.Apps {
		if err := validateApp(app, hosts); err != nil {
			return fmt.Errorf("apps[%d] invalid: %w", i, err)
		}
		id := django.SeedID(app.ID)
		if _, dup := ids[id]; dup {
			return fmt.Errorf("apps[%d] invalid: duplicate id %q", i, app.ID)
		}
		ids[id] = struct{}{}
	}
	return nil
}

func validateHost(h HostConfig) error {
	name := strings.TrimSpace(h.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if name == LocalHost {
		return fmt.Errorf("name %q is reserved", LocalHost)
	}
	if strings.TrimSpace(h.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if strings.TrimSpace(h.User) == "" {
		return fmt.Errorf("user is required")
	}
	if strings.TrimSpace(h.KeyPath) == "" {
		return fmt.Errorf("key_path is required")
	}
	if _, err := h.timeout(); err != nil {
		return err
	}
	return nil
}

func validateApp(app AppConfig, hosts map[string]struct{}) error {
	if strings.TrimSpace(app.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !seeds.IsValidID(django.SeedID(app.ID)) {
		return fmt.Errorf("id %q must be lowercase letters, digits, '.', '-' or '_'", app.ID)
	}
	if strings.TrimSpace(app.AppPath) == "" {
		return fmt.Errorf("app_path is required")
	}
	host := strings.TrimSpace(app.Host)
	if host == "" || host == LocalHost {
		return nil
	}
	if _, ok := hosts[host]; !ok {
		return fmt.Errorf("unknown host %q", app.Host)
	}
	return nil
}

func (h HostConfig) timeout() (time.Duration, error) {
	raw := strings.TrimSpace(h.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse timeout: %w", err)
	}
	return d, nil
}

// Runner builds the ssh runner for h.
func (h HostConfig) Runner() (tools.SSHRunner, error) {
	timeout, err := h.timeout()
	if err != nil {
		return tools.SSHRunner{}, err
	}
	return tools.SSHRunner{
		Host:                        strings.TrimSpace(h.Host),
		Port:                        strings.TrimSpace(h.Port),
		User:                        strings.TrimSpace(h.User),
		KeyPath:                     tools.ExpandHome(strings.TrimSpace(h.KeyPath)),
		KnownHostsPath:              tools.ExpandHome(strings.TrimSpace(h.KnownHosts)),
		InsecureSkipHostKeyChecking: h.InsecureSkipHostKey,
		Timeout:                     timeout,
	}, nil
}

// RunnerFor resolves a host name to a command runner. Empty and "local" run locally.
func (c Config) RunnerFor(name string) (tools.CommandRunner, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == LocalHost {
		return tools.ExecRunner{}, nil
	}
	for _, h := range c.Hosts {
		if h.Name == name {
			return h.Runner()
		}
	}
	return nil, fmt.Errorf("unknown host %q", name)
}

// Manager builds a manage.Manager for runner with the configured interpreter and tool.
func (c Config) Manager(runner tools.CommandRunner) *manage.Manager {
	m := manage.NewManager(runner)
	m.Python = c.Python
	m.VirtualenvTool = c.VirtualenvTool
	return m
}

// Registry registers one django seed per configured app.
func (c Config) Registry() (*seeds.Registry, error) {
	reg := seeds.NewRegistry()
	for _, app := range c.Apps {
		runner, err := c.RunnerFor(app.Host)
		if err != nil {
			return nil, fmt.Errorf("app %q: %w", app.ID, err)
		}
		seed := django.NewSeed(django.App{
			ID:          app.ID,
			Name:        app.Name,
			Description: app.Description,
			AppPath:     app.AppPath,
			Settings:    app.Settings,
			PythonPath:  app.PythonPath,
			Virtualenv:  app.Virtualenv,
		}, c.Manager(runner))
		if err := reg.Register(seed); err != nil {
			return nil, fmt.Errorf("app %q: %w", app.ID, err)
		}
	}
	return reg, nil
}
