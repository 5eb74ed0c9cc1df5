package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pingd",
	Short: "pingd: latency-over-HTTP reachability probe",
	Long: `pingd answers GET /ping?host=<host> with the round-trip latency to that host,
measured with the system ping utility or a native ICMP echo.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
