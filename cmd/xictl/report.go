package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xi-lua/sentinel/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [event-type]",
	Short: "Inject an event into the Unified Monitor",
	Long: `Inject an event into the Unified Monitor. Events in the configured
suspicious-type set (failed_auth, invalid_signature, rate_limit_exceeded,
unauthorized_access, tampering_detected by default) are escalated to
AutoHeal's kill-switch; all other events are appended straight to the
audit chain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, _ := cmd.Flags().GetStringSlice("detail")

		meta := types.Metadata{}
		for _, kv := range details {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("failed to parse --detail %q: want key=value", kv)
			}
			meta[parts[0]] = parts[1]
		}

		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		c.ReportEvent(args[0], meta)
		fmt.Println("✓ event reported")
		return nil
	},
}

func init() {
	reportCmd.Flags().StringSlice("detail", nil, "key=value detail, repeatable")
}
