package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/pkg/service"
)

func NewDoctorCmd(svc **service.Service) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check repository health",
		Long: `Sweep the repository state folder for traces of interrupted sessions:
locks whose owning process died, stranded pre-edit backups, recovery
artifacts awaiting inspection, and items that fail to parse.

With --fix, dead locks are removed and stranded backups are preserved as
recovery artifacts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			report, err := s.Doctor(fix)
			if err != nil {
				return err
			}

			if report.Healthy() {
				fmt.Printf("Repository %s is healthy\n", s.Repo.Root())
				return nil
			}

			for _, l := range report.HeldLocks {
				fmt.Printf("lock held: item %s (pid %d)\n", l.ID, l.Holder.PID)
			}
			for _, l := range report.OrphanedLocks {
				if fix {
					fmt.Printf("removed orphaned lock: item %s\n", l.ID)
				} else {
					fmt.Printf("orphaned lock: item %s (%s)\n", l.ID, l.Path)
				}
			}
			for _, b := range report.StrandedBackups {
				fmt.Printf("stranded backup: %s\n", b)
			}
			for _, a := range report.Salvaged {
				fmt.Printf("salvaged into recovery: %s\n", a)
			}
			for _, a := range report.RecoveryArtifacts {
				fmt.Printf("recovery artifact awaiting inspection: %s\n", a)
			}
			for _, c := range report.CorruptItems {
				fmt.Printf("corrupt: %s\n", c)
			}

			if !fix && (len(report.OrphanedLocks) > 0 || len(report.StrandedBackups) > 0) {
				fmt.Println("\nRun 'pm doctor --fix' to clean up")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Remove dead locks and salvage stranded backups")

	return cmd
}
