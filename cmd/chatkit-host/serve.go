package main

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatkit-host/pkg/host"
	"github.com/go-go-golems/chatkit-host/pkg/widget"
)

func newServeCommand() *cobra.Command {
	var (
		addr         string
		backendURL   string
		widgetConfig string
		clipboard    string
		journalDB    string
		forceJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat page, proxy the widget API and relay widget actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("addr") {
				settings.Addr = addr
			}
			if f.Changed("backend-url") {
				settings.BackendURL = backendURL
			}
			if f.Changed("widget-config") {
				settings.WidgetConfig = widgetConfig
			}
			if f.Changed("clipboard") {
				settings.Clipboard = clipboard
			}
			if f.Changed("journal-db") {
				settings.JournalDB = journalDB
			}
			if f.Changed("force-json-content-type") {
				settings.ForceJSONContentType = forceJSON
			}

			options, err := widget.LoadOptions(settings.WidgetConfig)
			if err != nil {
				return err
			}
			srv, err := host.NewServer(settings, options)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "Listen address")
	f.StringVar(&backendURL, "backend-url", "", "Backend the widget API is proxied to")
	f.StringVar(&widgetConfig, "widget-config", "", "YAML file with widget options")
	f.StringVar(&clipboard, "clipboard", "", "Clipboard used by the bridge (system, memory)")
	f.StringVar(&journalDB, "journal-db", "", "SQLite file for the action journal (in-memory when empty)")
	f.BoolVar(&forceJSON, "force-json-content-type", false, "Overwrite caller Content-Type headers on proxied calls")
	return cmd
}
