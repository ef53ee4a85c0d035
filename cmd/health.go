package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var healthAddr string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Fetch health metrics from a running extraction server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, healthAddr+"/v1/health", nil)
		if err != nil {
			return eris.Wrap(err, "create health request")
		}

		resp, err := client.Do(req)
		if err != nil {
			return eris.Wrap(err, "health request failed")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "read health response")
		}
		if resp.StatusCode != http.StatusOK {
			return eris.Errorf("health endpoint returned %d: %s", resp.StatusCode, string(body))
		}

		var pretty map[string]any
		if err := json.Unmarshal(body, &pretty); err != nil {
			return eris.Wrap(err, "parse health response")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthAddr, "addr", "http://localhost:8080", "base URL of the running server")
	rootCmd.AddCommand(healthCmd)
}
