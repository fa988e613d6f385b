package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewEditCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <uuid>",
		Short: "Edit an item's data in your editor",
		Long: `Open one item's data payload in your configured editor.

The item stays locked while the editor runs. The canonical file is only
rewritten once the edited payload parses; otherwise the pre-edit state is
preserved under the recovery folder and nothing is lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if err := s.EditWithEditor(args[0]); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", args[0])
			return nil
		},
	}

	return cmd
}
