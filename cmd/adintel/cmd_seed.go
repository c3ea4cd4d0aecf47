package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the workspace campaign store with starter ads",
	Long: `Creates the campaign database under .adintel/ and inserts the
default starter campaigns when the store is empty. Safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.SeedDefaults(cmd.Context())
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("Store already has campaigns, nothing seeded.")
			return nil
		}
		fmt.Printf("Seeded %d campaigns into %s\n", n, campaignDBPath())
		return nil
	},
}
