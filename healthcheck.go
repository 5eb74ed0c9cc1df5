package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/d4z3x/pingd/internal/config"
	"github.com/spf13/cobra"
)

var healthcheckURL string

// healthcheckCmd is meant for container HEALTHCHECK lines: exit 0 when the
// local listener answers below 500, 1 otherwise.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the local ping server is answering",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := healthcheckURL
		if url == "" {
			url = fmt.Sprintf("http://127.0.0.1:%d/healthz", config.Load().Port)
		}

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("unhealthy: %s", resp.Status)
		}
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "health endpoint (default http://127.0.0.1:$PORT/healthz)")
	rootCmd.AddCommand(healthcheckCmd)
}
