package widget

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Options is the static configuration handed to the embedded widget.
// Field names follow the widget's own option keys.
type Options struct {
	API         APIOptions         `json:"api" yaml:"api"`
	StartScreen StartScreenOptions `json:"startScreen" yaml:"startScreen"`
	Theme       ThemeOptions       `json:"theme" yaml:"theme"`
	Composer    ComposerOptions    `json:"composer" yaml:"composer"`
}

type APIOptions struct {
	URL       string `json:"url" yaml:"url"`
	DomainKey string `json:"domainKey" yaml:"domainKey"`
}

type StartScreenOptions struct {
	Greeting string   `json:"greeting" yaml:"greeting"`
	Prompts  []Prompt `json:"prompts" yaml:"prompts"`
}

type Prompt struct {
	Label  string `json:"label" yaml:"label"`
	Prompt string `json:"prompt" yaml:"prompt"`
	Icon   string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

type ThemeOptions struct {
	ColorScheme string          `json:"colorScheme" yaml:"colorScheme"`
	Radius      string          `json:"radius" yaml:"radius"`
	Color       ThemeColor      `json:"color" yaml:"color"`
	Density     string          `json:"density" yaml:"density"`
	Typography  ThemeTypography `json:"typography" yaml:"typography"`
}

type ThemeColor struct {
	Accent AccentColor `json:"accent" yaml:"accent"`
}

type AccentColor struct {
	Primary string `json:"primary" yaml:"primary"`
	Level   int    `json:"level" yaml:"level"`
}

type ThemeTypography struct {
	FontFamily string `json:"fontFamily" yaml:"fontFamily"`
}

type ComposerOptions struct {
	Placeholder string `json:"placeholder" yaml:"placeholder"`
}

const DefaultAPIURL = "/api/chatkit"

func DefaultOptions() Options {
	return Options{
		API: APIOptions{
			URL:       DefaultAPIURL,
			DomainKey: "local-dev",
		},
		StartScreen: StartScreenOptions{
			Greeting: "Hey there! 👋 I'm your AI assistant. What would you like to chat about?",
			Prompts: []Prompt{
				{Label: "💡 Get creative", Prompt: "Help me brainstorm ideas for a new project", Icon: "sparkle"},
				{Label: "📚 Learn something", Prompt: "Explain a concept I'm curious about", Icon: "circle-question"},
				{Label: "✍️ Write something", Prompt: "Help me write or edit some content", Icon: "sparkle"},
				{Label: "🤔 Ask anything", Prompt: "Answer a question I have", Icon: "circle-question"},
			},
		},
		Theme: ThemeOptions{
			ColorScheme: "light",
			Radius:      "round",
			Color: ThemeColor{
				Accent: AccentColor{Primary: "#6366f1", Level: 2},
			},
			Density: "normal",
			Typography: ThemeTypography{
				FontFamily: `-apple-system, BlinkMacSystemFont, "Segoe UI", "Roboto", "Oxygen", "Ubuntu", "Cantarell", "Fira Sans", "Droid Sans", "Helvetica Neue", sans-serif`,
			},
		},
		Composer: ComposerOptions{
			Placeholder: "Type your message...",
		},
	}
}

var (
	colorSchemes = map[string]struct{}{"light": {}, "dark": {}}
	radii        = map[string]struct{}{"pill": {}, "round": {}, "soft": {}, "sharp": {}}
	densities    = map[string]struct{}{"compact": {}, "normal": {}, "spacious": {}}
	hexColorRe   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

func (o Options) Validate() error {
	if strings.TrimSpace(o.API.URL) == "" {
		return errors.New("widget options: api.url is empty")
	}
	if _, ok := colorSchemes[o.Theme.ColorScheme]; !ok {
		return errors.Errorf("widget options: unknown theme.colorScheme %q", o.Theme.ColorScheme)
	}
	if _, ok := radii[o.Theme.Radius]; !ok {
		return errors.Errorf("widget options: unknown theme.radius %q", o.Theme.Radius)
	}
	if _, ok := densities[o.Theme.Density]; !ok {
		return errors.Errorf("widget options: unknown theme.density %q", o.Theme.Density)
	}
	if p := o.Theme.Color.Accent.Primary; p != "" && !hexColorRe.MatchString(p) {
		return errors.Errorf("widget options: theme.color.accent.primary %q is not a hex color", p)
	}
	if l := o.Theme.Color.Accent.Level; l < 0 || l > 3 {
		return errors.Errorf("widget options: theme.color.accent.level %d out of range 0..3", l)
	}
	for i, p := range o.StartScreen.Prompts {
		if strings.TrimSpace(p.Label) == "" || strings.TrimSpace(p.Prompt) == "" {
			return errors.Errorf("widget options: startScreen.prompts[%d] needs label and prompt", i)
		}
	}
	return nil
}

// LoadOptions reads a YAML document on top of DefaultOptions. An empty path
// returns the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if strings.TrimSpace(path) == "" {
		return opts, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrap(err, "read widget options")
	}
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return Options{}, errors.Wrapf(err, "parse widget options %s", path)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
