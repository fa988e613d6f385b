package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewShowCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show one item in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			it, err := s.Item(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("uuid: %s\n", it.ID)
			fmt.Printf("type: %s", it.Type)
			if it.TypeVersion != "" {
				fmt.Printf(" (v%s)", it.TypeVersion)
			}
			fmt.Println()
			fmt.Printf("file: %s\n", it.Path)

			data, err := json.MarshalIndent(it.Data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("data: %s\n", string(data))
			return nil
		},
	}

	return cmd
}
