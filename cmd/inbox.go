package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/item"
	"github.com/thomas6785/protomanage/pkg/query"
	"github.com/thomas6785/protomanage/pkg/service"
)

func NewInboxCmd(svc **service.Service) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "inbox [text...]",
		Short: "Capture a text entry in the inbox",
		Long: `Capture a quick text entry as an inbox item in the governing repository.

The inbox is a temporary holding area: capture now, process later. Each entry
records the directory, machine, and time it was captured in.

Examples:
  pm inbox call the dentist
  pm inbox --show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if show || len(args) == 0 {
				items, err := s.Items(query.Query{Type: item.TypeInboxItem})
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Println("No items in inbox!")
					return nil
				}
				for _, it := range items {
					fmt.Println(s.Render(it))
				}
				return nil
			}

			it, err := s.AddToInbox(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("Added %s to inbox\n", it.ShortID())
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "List inbox items instead of adding one")

	return cmd
}
