package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/cmd/config"
	"github.com/thomas6785/protomanage/pkg/repo"
)

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a repository in the current directory",
		Long: `Initialize a protomanage repository in the current directory.

This creates the repository state folder with its identity file, default
configuration, and item storage. With --home, the home repository is created
instead — commands run outside any repository fall back to it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.HomeOverride {
				r, err := repo.InitHome()
				if err != nil {
					return fmt.Errorf("initialize home repository: %w", err)
				}
				fmt.Printf("Initialized home repository at %s (uuid %s)\n", r.Root(), r.UUID())
				return nil
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			r, err := repo.Init(cwd)
			if err != nil {
				return err
			}
			fmt.Printf("Initialized repository at %s (uuid %s)\n", r.Root(), r.UUID())
			fmt.Println("\nReady to use! Try 'pm inbox something to remember' to capture your first item.")
			return nil
		},
	}

	return cmd
}
