package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xi-lua/sentinel/pkg/omegagate"
)

var admitCmd = &cobra.Command{
	Use:   "admit [action-type] [confidence]",
	Short: "Run one action through Ω-Gate and Stabilizer admission",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		actionType := args[0]
		var confidence float64
		if _, err := fmt.Sscanf(args[1], "%f", &confidence); err != nil {
			return fmt.Errorf("failed to parse confidence %q: %v", args[1], err)
		}

		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		components, admitErr := c.Admit(actionType, confidence, nil)
		fmt.Println(omegagate.Report(components, c.Gate.Threshold()))
		if admitErr != nil {
			return fmt.Errorf("failed to admit action: %w", admitErr)
		}
		fmt.Println("✓ admitted")
		return nil
	},
}
