package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/chrono/pkg/registry"
	"github.com/psantana5/chrono/pkg/retry"
	tlsutil "github.com/psantana5/chrono/pkg/tls"
	"github.com/spf13/cobra"
)

var (
	swCreateStart bool
	swCAFile      string
	swCertFile    string
	swKeyFile     string
)

var swCmd = &cobra.Command{
	Use:   "sw",
	Short: "Manage stopwatches on a chrono server",
	Long: `Client commands for the stopwatches held by "chrono serve".

The server is taken from --server or server_url, and the bearer token from
api_key (CHRONO_API_KEY).`,
}

var swCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a stopwatch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := json.Marshal(map[string]interface{}{"name": args[0], "start": swCreateStart})
		if err != nil {
			return err
		}
		var entry registry.Entry
		if err := doRequest("POST", "/stopwatches", body, http.StatusCreated, &entry); err != nil {
			return err
		}
		return printEntries([]registry.Entry{entry}, entry)
	},
}

var swListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stopwatches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Stopwatches []registry.Entry `json:"stopwatches" yaml:"stopwatches"`
			Count       int              `json:"count" yaml:"count"`
		}
		if err := doRequest("GET", "/stopwatches", nil, http.StatusOK, &resp); err != nil {
			return err
		}
		if resp.Count == 0 && isTableOutput() {
			fmt.Println("No stopwatches")
			return nil
		}
		return printEntries(resp.Stopwatches, resp)
	},
}

var swGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a stopwatch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var entry registry.Entry
		if err := doRequest("GET", "/stopwatches/"+url.PathEscape(args[0]), nil, http.StatusOK, &entry); err != nil {
			return err
		}
		return printEntries([]registry.Entry{entry}, entry)
	},
}

var swDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stopwatch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doRequest("DELETE", "/stopwatches/"+url.PathEscape(args[0]), nil, http.StatusNoContent, nil); err != nil {
			return err
		}
		fmt.Printf("Stopwatch %s deleted\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(swCmd)
	swCmd.AddCommand(swCreateCmd, swListCmd, swGetCmd, swDeleteCmd)
	for _, op := range []string{"start", "stop", "reset", "restart"} {
		swCmd.AddCommand(newTransitionCmd(op))
	}

	swCreateCmd.Flags().BoolVar(&swCreateStart, "start", false, "start the stopwatch right away")
	swCmd.PersistentFlags().StringVar(&swCAFile, "ca", "", "CA certificate used to verify an https server")
	swCmd.PersistentFlags().StringVar(&swCertFile, "cert", "", "client certificate for mutual TLS")
	swCmd.PersistentFlags().StringVar(&swKeyFile, "key", "", "client key for mutual TLS")
}

func newTransitionCmd(op string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <id>",
		Short: strings.ToUpper(op[:1]) + op[1:] + " a stopwatch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entry registry.Entry
			path := "/stopwatches/" + url.PathEscape(args[0]) + "/" + op
			if err := doRequest("POST", path, nil, http.StatusOK, &entry); err != nil {
				return err
			}
			return printEntries([]registry.Entry{entry}, entry)
		},
	}
}

func newHTTPClient() (*http.Client, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	if !strings.HasPrefix(GetServerURL(), "https://") {
		return client, nil
	}
	cfg, err := tlsutil.LoadClientConfig(swCertFile, swKeyFile, swCAFile)
	if err != nil {
		return nil, err
	}
	client.Transport = &http.Transport{TLSClientConfig: cfg}
	return client, nil
}

// doRequest calls the server and decodes the JSON response into out when out
// is not nil. GET requests are retried on transient network errors.
func doRequest(method, path string, body []byte, want int, out interface{}) error {
	client, err := newHTTPClient()
	if err != nil {
		return err
	}

	cfg := retry.DefaultConfig()
	if method != http.MethodGet {
		cfg.MaxRetries = 0
	}

	var resp *http.Response
	err = retry.Do(context.Background(), cfg, func() error {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := CreateAuthenticatedRequest(method, GetServerURL()+path, r)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		resp, err = client.Do(req)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func printEntries(entries []registry.Entry, structured interface{}) error {
	if ok, err := printStructured(os.Stdout, structured); ok {
		return err
	}
	return renderEntries(os.Stdout, entries)
}

func renderEntries(w io.Writer, entries []registry.Entry) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "State", "Elapsed", "Ticks", "Created")
	for _, e := range entries {
		state := "stopped"
		if e.Running {
			state = "running"
		}
		table.Append(
			e.ID,
			e.Name,
			state,
			e.Elapsed.String(),
			fmt.Sprintf("%d", e.ElapsedTicks),
			e.CreatedAt.Format(time.RFC3339),
		)
	}
	return table.Render()
}
