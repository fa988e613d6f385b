package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/query"
	"github.com/thomas6785/protomanage/pkg/service"
)

func NewListCmd(svc **service.Service) *cobra.Command {
	var (
		listType  string
		listIDs   []string
		listWhere []string
		listJSON  bool
		strict    bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List items in the governing repository",
		Aliases: []string{"ls"},
		Long: `List items, optionally filtered by identity, type, or data fields.

Filters compose: an item must satisfy all of them. --where takes dotted
key paths into the data payload.

Examples:
  pm list
  pm list --type protomanage.core.inbox-item
  pm list --where status=pending --where priority=2
  pm list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			where, err := parsePathValues(listWhere)
			if err != nil {
				return err
			}

			items, err := s.Items(query.Query{
				IDs:    listIDs,
				Type:   listType,
				Data:   where,
				Strict: strict,
			})
			if err != nil {
				return err
			}

			if listJSON {
				type row struct {
					ID   string         `json:"uuid"`
					Type string         `json:"type"`
					Data map[string]any `json:"data"`
				}
				rows := make([]row, len(items))
				for i, it := range items {
					rows[i] = row{ID: it.ID, Type: it.Type, Data: it.Data}
				}
				out, err := json.MarshalIndent(rows, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(items) == 0 {
				fmt.Println("No items found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", it.ShortID(), it.Type, s.Render(it))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&listType, "type", "t", "", "Filter by item type unique name")
	cmd.Flags().StringSliceVar(&listIDs, "id", nil, "Filter by item identifier (repeatable)")
	cmd.Flags().StringSliceVar(&listWhere, "where", nil, "Filter by data field, as dotted.path=value (repeatable)")
	cmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on corrupt items instead of skipping them")

	return cmd
}
