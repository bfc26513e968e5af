package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Force an immediate ephemeral key rotation",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.ForceRotate(); err != nil {
			return fmt.Errorf("failed to rotate key: %w", err)
		}
		fmt.Println("✓ key rotated")
		return nil
	},
}
