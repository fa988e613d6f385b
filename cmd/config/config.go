package config

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thomas6785/protomanage/pkg/service"
)

var (
	cfgFile      string
	HomeOverride bool
)

// InitConfig wires viper: explicit --config file, otherwise
// ~/.config/pm/config.yaml, with PM_-prefixed environment overrides.
func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "pm")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PM")

	viper.SetDefault("editor", os.Getenv("EDITOR"))
	viper.SetDefault("log_level", "warn")

	// A missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// NewLogger builds the shared logger from the configured level.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

// InitService resolves the governing repository and builds the service.
func InitService() (*service.Service, error) {
	cfg := &service.Config{
		UseHome: HomeOverride,
		Editor:  viper.GetString("editor"),
	}
	return service.New(cfg, NewLogger())
}

// AddGlobalFlags attaches the flags every command shares.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pm/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&HomeOverride, "home", "H", false, "Operate on the home repository regardless of working directory")
}
