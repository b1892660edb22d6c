package main

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatkit-host/pkg/widget"
)

type OptionsCommand struct {
	*cmds.CommandDescription
}

type OptionsSettings struct {
	WidgetConfig string `glazed:"widget-config"`
}

func NewOptionsCommand() (*OptionsCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"options",
		cmds.WithShort("Print the widget options the host would serve, one row per setting"),
		cmds.WithFlags(
			fields.New(
				"widget-config",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("YAML file with widget options (defaults to widget_config from the host config)"),
			),
		),
		cmds.WithSections(glazedSection, commandSettingsSection),
	)
	return &OptionsCommand{CommandDescription: desc}, nil
}

func (c *OptionsCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedValues *values.Values,
	gp middlewares.Processor,
) error {
	s := &OptionsSettings{}
	if err := parsedValues.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	path := s.WidgetConfig
	if path == "" {
		hostSettings, err := loadSettings()
		if err != nil {
			return err
		}
		path = hostSettings.WidgetConfig
	}
	opts, err := widget.LoadOptions(path)
	if err != nil {
		return err
	}
	rows, err := optionRows(opts)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// optionRows flattens opts into key/value rows using the widget's JSON keys,
// e.g. "theme.color.accent.primary". List items are indexed: "startScreen.prompts.0.label".
func optionRows(opts widget.Options) ([]types.Row, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, errors.Wrap(err, "encode widget options")
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, errors.Wrap(err, "decode widget options")
	}
	flat := map[string]any{}
	flattenOption("", tree, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]types.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, types.NewRow(
			types.MRP("key", k),
			types.MRP("value", flat[k]),
		))
	}
	return rows, nil
}

func flattenOption(prefix string, v any, out map[string]any) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flattenOption(join(k), child, out)
		}
	case []any:
		for i, child := range t {
			flattenOption(join(strconv.Itoa(i)), child, out)
		}
	default:
		out[prefix] = t
	}
}

var _ cmds.GlazeCommand = &OptionsCommand{}
