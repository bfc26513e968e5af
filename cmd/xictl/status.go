package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the Unified Monitor's current status snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		snapshot, err := c.Status()
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		if format == "yaml" {
			data, err := yaml.Marshal(snapshot)
			if err != nil {
				return fmt.Errorf("failed to marshal status: %v", err)
			}
			fmt.Print(string(data))
			return nil
		}

		fmt.Printf("instance:    %s\n", snapshot.InstanceID)
		fmt.Printf("autoheal:    status=%s rotations=%d key_age=%ds chain_len=%d chain_intact=%v root=%s\n",
			snapshot.AutoHeal.Status, snapshot.AutoHeal.RotationCount, snapshot.AutoHeal.KeyAgeSeconds,
			snapshot.AutoHeal.ChainLength, snapshot.AutoHeal.ChainIntegrity, snapshot.AutoHeal.MerkleRoot)
		fmt.Printf("stabilizer:  mode=%s psi_target=%.2f cvar=%.4f price=%.2fx recalibrations=%d\n",
			snapshot.Stabilizer.Mode, snapshot.Stabilizer.PsiTarget, snapshot.Stabilizer.CVaR,
			snapshot.Stabilizer.PriceMultiplier, snapshot.Stabilizer.RecalibrationCount)
		fmt.Printf("omega_gate:  omega=%.4f threshold=%.2f pass=%v\n",
			snapshot.OmegaGate.Omega, snapshot.OmegaGate.Threshold, snapshot.OmegaGate.Pass)
		fmt.Printf("monitor:     running=%v uptime=%.0fs events=%d security_events=%d recalibrations=%d\n",
			snapshot.Monitor.Running, snapshot.Monitor.UptimeSeconds, snapshot.Monitor.TotalEvents,
			snapshot.Monitor.SecurityEvents, snapshot.Monitor.Recalibrations)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or yaml")
}
