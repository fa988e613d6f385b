package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/thomas6785/protomanage/cmd"
	"github.com/thomas6785/protomanage/cmd/config"
	"github.com/thomas6785/protomanage/pkg/service"
)

var svc *service.Service

func main() {
	rootCmd := &cobra.Command{
		Use:           "pm",
		Short:         "A local, repository-based item tracker",
		Long:          "Protomanage tracks typed items in per-directory repositories, discovered by walking up from the working directory.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	config.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		config.InitConfig()

		// init and version must work before any repository exists.
		switch c.Name() {
		case "init", "version", "help", "completion":
			return nil
		}

		var err error
		svc, err = config.InitService()
		return err
	}
	rootCmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if svc != nil {
			return svc.Close()
		}
		return nil
	}

	rootCmd.AddCommand(cmd.NewInitCmd())
	rootCmd.AddCommand(cmd.NewInboxCmd(&svc))
	rootCmd.AddCommand(cmd.NewAddCmd(&svc))
	rootCmd.AddCommand(cmd.NewListCmd(&svc))
	rootCmd.AddCommand(cmd.NewShowCmd(&svc))
	rootCmd.AddCommand(cmd.NewSetCmd(&svc))
	rootCmd.AddCommand(cmd.NewEditCmd(&svc))
	rootCmd.AddCommand(cmd.NewDeleteCmd(&svc))
	rootCmd.AddCommand(cmd.NewTransformCmd(&svc))
	rootCmd.AddCommand(cmd.NewTypesCmd(&svc))
	rootCmd.AddCommand(cmd.NewSearchCmd(&svc))
	rootCmd.AddCommand(cmd.NewReposCmd(&svc))
	rootCmd.AddCommand(cmd.NewDoctorCmd(&svc))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
