package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewSearchCmd(svc **service.Service) *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "search <text...>",
		Short: "Search items by text",
		Long: `Search item contents through the repository's advisory index.

The index is a cache over the item files and is rebuilt automatically when
it drifts; --reindex forces a rebuild first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if reindex {
				if err := s.RefreshIndex(); err != nil {
					return err
				}
			}

			hits, err := s.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No matches")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, h := range hits {
				fmt.Fprintf(w, "%s\t%s\t%s\n", h.ID, h.Type, h.Rendered)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild the index before searching")

	return cmd
}
