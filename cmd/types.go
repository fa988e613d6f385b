package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewTypesCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List recognized item types",
		Long: `List the item types this build recognizes: the core built-ins plus any
types supplied by enabled plugins. Items of other types are still stored and
queryable; they just get generic rendering and no validation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			names := s.Types.Names()
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tVERSION")
			for _, name := range names {
				def, _ := s.Types.Get(name)
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, def.Display(), def.Version)
			}
			return w.Flush()
		},
	}
}
