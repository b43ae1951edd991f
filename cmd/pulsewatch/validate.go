package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"PulseWatch/internal/backend/dependencies"
	"PulseWatch/internal/shared/constants"

	"github.com/spf13/cobra"
)

var validateTargetCmd = &cobra.Command{
	Use:   "validate-target <url>",
	Short: "Run the SSRF target check for a URL and print the verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), constants.DNSTimeout)
		defer cancel()

		v := dependencies.NewTargetValidator(&cfg.Validator, nil, slog.Default())
		verdict := v.Validate(ctx, args[0])

		out, err := json.MarshalIndent(verdict, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode verdict: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if !verdict.Allowed {
			return fmt.Errorf("target rejected: %s", verdict.Reason)
		}
		return nil
	},
}
