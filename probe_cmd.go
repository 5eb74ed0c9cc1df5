package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/d4z3x/pingd/internal/config"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/spf13/cobra"
)

var probeTimeout time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe [host]",
	Short: "Probe a host once and print the result as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}

		host := cfg.DefaultHost
		if len(args) == 1 {
			host = args[0]
		}
		if !probe.ValidHost(host) {
			return fmt.Errorf("invalid host %q", host)
		}

		timeout := cfg.ProbeTimeout
		if probeTimeout > 0 {
			timeout = probeTimeout
		}

		p, err := probe.FromConfig(cfg)
		if err != nil {
			return err
		}
		latency, err := p.Probe(cmd.Context(), host, timeout)
		if err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(probe.NewResult(host, latency))
	},
}

func init() {
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 0, "probe timeout (default PROBE_TIMEOUT)")
	rootCmd.AddCommand(probeCmd)
}
