package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewAddCmd(svc **service.Service) *cobra.Command {
	var itemType string

	cmd := &cobra.Command{
		Use:   "add [key=value...]",
		Short: "Create a new item",
		Long: `Create a new item of the given type with an initial data payload.

Values are parsed as JSON where possible, so numbers, booleans, and arrays
come through typed. Dotted keys create nested fields.

Examples:
  pm add -t protomanage.core.note title="API design"
  pm add -t org.example.task title="Fix the build" priority=2 meta.source=standup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			data, err := parseFields(args)
			if err != nil {
				return err
			}

			it, err := s.CreateItem(itemType, data)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s (%s)\n", it.ShortID(), it.Type)
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemType, "type", "t", "protomanage.core.note", "Item type unique name")

	return cmd
}
