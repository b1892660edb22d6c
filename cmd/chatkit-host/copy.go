package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tiktoken-go/tokenizer"

	"github.com/go-go-golems/chatkit-host/pkg/actions"
	"github.com/go-go-golems/chatkit-host/pkg/bridge"
	"github.com/go-go-golems/chatkit-host/pkg/clipboard"
	"github.com/go-go-golems/chatkit-host/pkg/host"
	"github.com/go-go-golems/chatkit-host/pkg/widget"
)

func newCopyCommand() *cobra.Command {
	var (
		relayURL  string
		kind      string
		stats     bool
		actionTyp string
	)
	cmd := &cobra.Command{
		Use:   "copy [TEXT...]",
		Short: "Send a copy_to_clipboard action, locally or to a running host",
		Long: "Dispatch a copy_to_clipboard action with TEXT (or stdin) on a local widget " +
			"through the action bridge, or send it to a running host with --relay.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				text = string(b)
			}
			d := actions.NewCopyToClipboard(text)
			if actionTyp != "" {
				d.Type = actionTyp
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if relayURL != "" {
				if err := relayAction(ctx, cmd, relayURL, d); err != nil {
					return err
				}
			} else if err := copyLocally(ctx, cmd, kind, d); err != nil {
				return err
			}
			if stats {
				printStats(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&relayURL, "relay", "", "Action relay of a running host, e.g. ws://127.0.0.1:5173/ws/actions")
	f.StringVar(&kind, "clipboard", clipboard.KindSystem, "Clipboard used locally (system, memory)")
	f.StringVar(&actionTyp, "type", "", "Override the action type")
	f.BoolVar(&stats, "stats", false, "Show statistics about the copied text")
	return cmd
}

func relayAction(ctx context.Context, cmd *cobra.Command, url string, d *actions.Detail) error {
	c, err := host.DialRelay(ctx, url, nil)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	ack, err := c.Send(ctx, d)
	if err != nil {
		return err
	}
	if !ack.OK {
		return errors.Errorf("host rejected %s: %s", d.Type, ack.Error)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "relayed %s\n", ack.Type)
	return nil
}

// copyLocally mounts a widget, attaches a bridge and dispatches d on its
// root, the same path a relayed action takes inside the host.
func copyLocally(ctx context.Context, cmd *cobra.Command, kind string, d *actions.Detail) error {
	copier, err := clipboard.New(kind)
	if err != nil {
		return err
	}
	w := widget.New(widget.DefaultOptions())
	root := w.Mount()
	defer w.Unmount()

	var result bridge.Outcome
	b := bridge.New(w, copier,
		bridge.WithContext(ctx),
		bridge.WithObserver(func(o bridge.Outcome) { result = o }),
	)
	if err := b.Start(); err != nil {
		return err
	}
	root.DispatchEvent(&widget.CustomEvent{Name: widget.ActionEventName, Detail: d})
	b.Wait()
	b.Stop()

	switch result.Outcome {
	case bridge.OutcomeCopyFailed:
		return errors.Wrap(result.Err, "copy failed")
	case "":
		fmt.Fprintln(cmd.ErrOrStderr(), "nothing to copy")
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", result.Type, result.Outcome)
	}
	return nil
}

func printStats(out io.Writer, content string) {
	lineCount := strings.Count(content, "\n") + 1
	fmt.Fprintf(out, "Statistics:\n")
	if enc, err := tokenizer.Get(tokenizer.Cl100kBase); err == nil {
		if ids, _, err := enc.Encode(content); err == nil {
			fmt.Fprintf(out, "  Tokens: %d\n", len(ids))
		}
	}
	fmt.Fprintf(out, "  Lines:  %d\n", lineCount)
	fmt.Fprintf(out, "  Size:   %d bytes\n", len(content))
}
