package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewReposCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage the home repository's registry of known repositories",
	}

	cmd.AddCommand(newReposListCmd(svc))
	cmd.AddCommand(newReposTouchCmd(svc))
	cmd.AddCommand(newReposReconcileCmd(svc))

	return cmd
}

func newReposListCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List registered repositories",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			entries, err := s.ListRepos()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No repositories registered")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UUID\tPATH\tLAST SEEN\tSTATUS")
			for _, e := range entries {
				status := "ok"
				if e.Stale {
					status = "stale"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.UUID, e.Path, e.LastSeen.Format("2006-01-02 15:04"), status)
			}
			return w.Flush()
		},
	}
}

func newReposTouchCmd(svc **service.Service) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "touch [dir]",
		Short: "Register or refresh repositories",
		Long: `Refresh the registry entry for the repository governing the given
directory (the current one by default), or with --recursive, discover and
register every repository under it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			touched, err := s.TouchPath(dir, recursive)
			if err != nil {
				return err
			}
			fmt.Printf("Touched %d repositories\n", touched)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Register every repository in the subtree")

	return cmd
}

func newReposReconcileCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check registered repositories' reachability",
		Long: `Verify each registered repository is still where the registry last saw it.
Unreachable entries are marked stale but never removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			stale, err := s.ReconcileRepos()
			if err != nil {
				return err
			}
			if stale == 0 {
				fmt.Println("All registered repositories reachable")
			} else {
				fmt.Printf("%d repositories unreachable, marked stale\n", stale)
			}
			return nil
		},
	}
}
