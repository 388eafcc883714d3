// answerctl is the command-line client for an AnswerDesk server.
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

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "answerctl",
		Short: "AnswerDesk client - ask questions, ingest documents, tune the loop",
		Long: `answerctl talks to a running AnswerDesk server.

It can ask questions, send feedback on answers, ingest documents into the
knowledge base, inspect the current retrieval thresholds, and trigger a
learning run.`,
	}

	// Global flags
	rootCmd.PersistentFlags().String("server", envOr("ANSWERDESK_URL", "http://localhost:8080"), "AnswerDesk server URL")
	rootCmd.PersistentFlags().String("api-key", os.Getenv("ANSWERDESK_API_KEY"), "API key (Bearer)")
	rootCmd.PersistentFlags().Bool("json", false, "Output raw JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAskCmd(),
		newFeedbackCmd(),
		newIngestCmd(),
		newThresholdsCmd(),
		newLearnCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("answerctl version %s\n", version)
			}
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ── HTTP client ──────────────────────────────────────────────

type client struct {
	base   string
	apiKey string
	http   *http.Client
}

func newClient(cmd *cobra.Command) *client {
	base, _ := cmd.Flags().GetString("server")
	apiKey, _ := cmd.Flags().GetString("api-key")
	return &client{
		base:   base,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, string(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
