// Package config loads chatkit-host settings: defaults, then an optional YAML
// file, then CHATKIT_HOST_* environment variables. Command-line flags are
// applied last by the commands themselves.
package config

import (
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/chatkit-host/pkg/clipboard"
	"github.com/go-go-golems/chatkit-host/pkg/eventbus"
)

type Settings struct {
	Addr         string `yaml:"addr" env:"CHATKIT_HOST_ADDR"`
	BackendURL   string `yaml:"backend_url" env:"CHATKIT_HOST_BACKEND_URL"`
	WidgetConfig string `yaml:"widget_config" env:"CHATKIT_HOST_WIDGET_CONFIG"`
	// ForceJSONContentType overwrites caller Content-Type headers on proxied calls.
	ForceJSONContentType bool   `yaml:"force_json_content_type" env:"CHATKIT_HOST_FORCE_JSON_CONTENT_TYPE"`
	Clipboard            string `yaml:"clipboard" env:"CHATKIT_HOST_CLIPBOARD"`

	JournalDB         string `yaml:"journal_db" env:"CHATKIT_HOST_JOURNAL_DB"`
	JournalMaxEntries int    `yaml:"journal_max_entries" env:"CHATKIT_HOST_JOURNAL_MAX_ENTRIES"`

	ActionsPerSecond float64  `yaml:"actions_per_second" env:"CHATKIT_HOST_ACTIONS_PER_SECOND"`
	ActionBurst      int      `yaml:"action_burst" env:"CHATKIT_HOST_ACTION_BURST"`
	AllowedOrigins   []string `yaml:"allowed_origins" env:"CHATKIT_HOST_ALLOWED_ORIGINS" envSeparator:","`

	Redis eventbus.Settings `yaml:"redis"`
}

func Default() Settings {
	return Settings{
		Addr:              "127.0.0.1:5173",
		BackendURL:        "http://127.0.0.1:8000",
		Clipboard:         clipboard.KindSystem,
		JournalMaxEntries: 1000,
		ActionsPerSecond:  5,
		ActionBurst:       10,
		Redis:             eventbus.DefaultSettings(),
	}
}

// Load builds Settings from defaults, the YAML file at path (optional) and the environment.
func Load(path string) (Settings, error) {
	s := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Settings{}, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := env.Parse(&s); err != nil {
		return Settings{}, errors.Wrap(err, "parse environment")
	}
	return s, nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Addr) == "" {
		return errors.New("config: addr is empty")
	}
	u, err := url.Parse(s.BackendURL)
	if err != nil {
		return errors.Wrap(err, "config: backend_url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("config: backend_url %q must be http or https", s.BackendURL)
	}
	if u.Host == "" {
		return errors.Errorf("config: backend_url %q has no host", s.BackendURL)
	}
	switch s.Clipboard {
	case clipboard.KindSystem, clipboard.KindMemory:
	default:
		return errors.Errorf("config: unknown clipboard %q", s.Clipboard)
	}
	if s.ActionsPerSecond < 0 {
		return errors.New("config: actions_per_second must not be negative")
	}
	if s.ActionsPerSecond > 0 && s.ActionBurst < 1 {
		return errors.New("config: action_burst must be at least 1")
	}
	return nil
}
