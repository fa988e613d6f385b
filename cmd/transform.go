package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewTransformCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform <uuid> <target-type>",
		Short: "Convert an item to another type",
		Long: `Replace an item with a fresh item of the target type, using the source
type's transform capability. The replacement gets a new identifier; the old
item is removed once the replacement is safely on disk.

Example:
  pm transform 7f3a... protomanage.core.note`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			replacement, err := s.TransformItem(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Transformed into %s (%s)\n", replacement.ShortID(), replacement.Type)
			return nil
		},
	}

	return cmd
}
