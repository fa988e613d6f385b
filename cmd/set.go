package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewSetCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <uuid> <key=value...>",
		Short: "Update fields on an item",
		Long: `Update data fields on one item inside an edit session.

The item is locked and snapshotted before the edit; if anything goes wrong
the pre-edit state is preserved under the repository's recovery folder and
the canonical file is left untouched.

Examples:
  pm set 7f3a... status=done
  pm set 7f3a... priority=1 meta.reviewed=true`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			fields, err := parsePathValues(args[1:])
			if err != nil {
				return err
			}

			if err := s.SetFields(args[0], fields); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", args[0])
			return nil
		},
	}

	return cmd
}
