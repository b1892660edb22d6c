package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatkit-host/pkg/fetch"
)

func newFetchCommand() *cobra.Command {
	var (
		method    string
		data      string
		headers   []string
		forceJSON bool
	)
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Call a backend endpoint through the fetch adapter and print the body or the normalized error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := http.Header{}
			for _, kv := range headers {
				k, v, ok := strings.Cut(kv, ":")
				if !ok {
					return errors.Errorf("invalid header %q, expected Name: value", kv)
				}
				h.Add(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			opts := fetch.RequestOptions{Method: method, Header: h}
			if data != "" {
				if data == "-" {
					opts.Body = os.Stdin
				} else {
					opts.Body = strings.NewReader(data)
				}
				if method == "" {
					opts.Method = http.MethodPost
				}
			}

			policy := fetch.PreserveCallerContentType
			if forceJSON {
				policy = fetch.ForceJSONContentType
			}
			adapter := fetch.NewAdapter(fetch.WithContentTypePolicy(policy))

			resp, err := adapter.Do(cmd.Context(), args[0], opts)
			if err != nil {
				if he, ok := fetch.AsHTTPError(err); ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d %s\n", he.StatusCode, he.Message)
					return err
				}
				return errors.Wrapf(err, "%s request failed", fetch.TransportFailureKind(err))
			}
			defer resp.Body.Close()
			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&method, "method", "X", "", "HTTP method (GET, or POST when --data is set)")
	f.StringVarP(&data, "data", "d", "", "Request body, - reads stdin")
	f.StringArrayVarP(&headers, "header", "H", nil, "Extra header, Name: value")
	f.BoolVar(&forceJSON, "force-json-content-type", false, "Overwrite a caller Content-Type header")
	return cmd
}
