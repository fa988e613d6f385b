package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewDeleteCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <uuid>",
		Short:   "Delete an item",
		Aliases: []string{"rm"},
		Long: `Remove an item's file from the governing repository.

Deleting an item that does not exist is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if err := s.DeleteItem(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	return cmd
}
