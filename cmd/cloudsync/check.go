package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franksops/cloudsync/validate"
)

var checkPermissions []string

var checkCmd = &cobra.Command{
	Use:   "check <locator>...",
	Short: "Validate locators without transferring anything",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkPermissions, "permissions", nil,
		"Capabilities to probe out-of-process (read, write)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var prober validate.Prober
	if len(checkPermissions) > 0 {
		p, err := validate.NewS3Prober(ctx)
		if err != nil {
			return fmt.Errorf("cannot build permission prober: %w", err)
		}
		prober = p
	}

	failed := false
	for _, locator := range args {
		res := validate.Validate(locator)
		if !res.IsValid {
			failed = true
			fmt.Printf("INVALID  %s\n         %s\n", locator, res.Message)
			continue
		}
		fmt.Printf("ok       %s\n", locator)

		if prober == nil {
			continue
		}
		perms := make([]validate.Permission, 0, len(checkPermissions))
		for _, p := range checkPermissions {
			perms = append(perms, validate.Permission(p))
		}
		pres := validate.ValidateWithPermissions(ctx, locator, perms, prober)
		if !pres.PermissionValid {
			failed = true
			fmt.Printf("DENIED   %s\n         %s\n", locator, pres.Message)
		} else {
			fmt.Printf("granted  %s (%v)\n", locator, checkPermissions)
		}
	}

	if failed {
		os.Exit(1)
	}
	return nil
}
