// dialecticactl is a thin cobra client for the session API exposed by
// cmd/dialectica,
// grounded on the root-command-plus-subcommands shape of
// cklxx-elephant.ai/cmd/cobra_cli.go, trimmed to this tool's much smaller
// surface.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var baseURL string

	root := &cobra.Command{
		Use:   "dialecticactl",
		Short: "Admin client for the dialectica session registry",
	}
	root.PersistentFlags().StringVar(&baseURL, "addr", envOr("DIALECTICA_ADDR", "http://localhost:8080"), "base URL of the dialectica HTTP API")

	client := func() *apiClient { return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}} }

	root.AddCommand(
		newStartCommand(client),
		newPauseCommand(client),
		newResumeCommand(client),
		newStopCommand(client),
		newStatusCommand(client),
		newListCommand(client),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// apiClient is a minimal JSON-over-HTTP client for the session API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func (c *apiClient) do(method, path string, body any) (map[string]any, int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decode response: %w (body: %s)", err, raw)
		}
	}
	return out, resp.StatusCode, nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func newStartCommand(client func() *apiClient) *cobra.Command {
	var seedClaim string
	var maxCycles int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new reasoning session",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if seedClaim != "" {
				body["seed_claim"] = seedClaim
			}
			if maxCycles > 0 {
				body["max_cycles"] = maxCycles
			}
			out, status, err := client().do(http.MethodPost, "/api/v1/sessions", body)
			if err != nil {
				return err
			}
			if status >= 400 {
				return fmt.Errorf("start failed (%d): %v", status, out["error"])
			}
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&seedClaim, "seed-claim", "", "the claim to begin reasoning from")
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 0, "override max_cycles (0 uses the server default)")
	return cmd
}

func newSessionIDCommand(client func() *apiClient, use, short, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, status, err := client().do(http.MethodPost, "/api/v1/sessions/"+args[0]+"/"+verb, nil)
			if err != nil {
				return err
			}
			if status >= 400 {
				return fmt.Errorf("%s failed (%d): %v", verb, status, out["error"])
			}
			printJSON(out)
			return nil
		},
	}
}

func newPauseCommand(client func() *apiClient) *cobra.Command {
	return newSessionIDCommand(client, "pause", "Pause a running session", "pause")
}

func newResumeCommand(client func() *apiClient) *cobra.Command {
	return newSessionIDCommand(client, "resume", "Resume a paused session", "resume")
}

func newStopCommand(client func() *apiClient) *cobra.Command {
	return newSessionIDCommand(client, "stop", "Stop a session", "stop")
}

func newStatusCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a session's status, blackboard id and cycle count (not its configuration)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, status, err := client().do(http.MethodGet, "/api/v1/sessions/"+args[0], nil)
			if err != nil {
				return err
			}
			if status >= 400 {
				return fmt.Errorf("status failed (%d): %v", status, out["error"])
			}
			printJSON(out)
			return nil
		},
	}
}

func newListCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known session",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodGet, client().baseURL+"/api/v1/sessions", nil)
			if err != nil {
				return err
			}
			resp, err := client().http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			raw, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			var out []map[string]any
			if err := json.Unmarshal(raw, &out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			printJSON(out)
			return nil
		},
	}
}
