// Command rentalctl runs operator maintenance tasks against the fleetrent database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Operator tools for the fleet rental backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(retryInstallmentsCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(cleanupCmd())
	return root
}
