package main

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatkit-host/pkg/journal"
)

type HistoryCommand struct {
	*cmds.CommandDescription
}

type HistorySettings struct {
	JournalDB string `glazed:"journal-db"`
	Limit     int    `glazed:"limit"`
}

func NewHistoryCommand() (*HistoryCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"history",
		cmds.WithShort("List actions recorded in the journal, newest first"),
		cmds.WithFlags(
			fields.New(
				"journal-db",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("SQLite journal file (defaults to journal_db from the host config)"),
			),
			fields.New(
				"limit",
				fields.TypeInteger,
				fields.WithDefault(50),
				fields.WithHelp("Maximum number of entries"),
			),
		),
		cmds.WithSections(glazedSection, commandSettingsSection),
	)
	return &HistoryCommand{CommandDescription: desc}, nil
}

func (c *HistoryCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedValues *values.Values,
	gp middlewares.Processor,
) error {
	s := &HistorySettings{}
	if err := parsedValues.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	path := s.JournalDB
	if path == "" {
		hostSettings, err := loadSettings()
		if err != nil {
			return err
		}
		path = hostSettings.JournalDB
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("no journal database configured (--journal-db or journal_db)")
	}
	dsn, err := journal.SQLiteDSNForFile(path)
	if err != nil {
		return err
	}
	store, err := journal.NewSQLiteStore(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows, err := historyRows(ctx, store, s.Limit)
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

func historyRows(ctx context.Context, store journal.Store, limit int) ([]types.Row, error) {
	entries, err := store.List(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list journal")
	}
	rows := make([]types.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, types.NewRow(
			types.MRP("created_at", time.UnixMilli(e.CreatedAtMs).UTC().Format(time.RFC3339)),
			types.MRP("type", e.Type),
			types.MRP("source", e.Source),
			types.MRP("text", e.Text),
			types.MRP("id", e.ID),
			types.MRP("message_id", e.MessageID),
		))
	}
	return rows, nil
}

var _ cmds.GlazeCommand = &HistoryCommand{}
