package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/conneroisu/switchboard/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "A small HTTP server with a fixed route table",
	Long: `Switchboard serves a fixed set of routes over HTTP/1.1: two HTML pages,
a JSON endpoint, and a 404 page for everything else. It drains in-flight
connections on SIGINT or SIGTERM before exiting.

Quick Start:
  switchboard serve               Start the server on port 3000
  PORT=8080 switchboard serve     Start on another port
  switchboard routes              List the route table
  switchboard config show         Print the resolved configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .switchboard.yml, can also use SWITCHBOARD_CONFIG_FILE env var)")
	addLogFlags(rootCmd)
}

// initConfig selects the configuration file and reads it into the global
// viper instance. A missing default file is not an error; an explicitly
// requested file that cannot be read is reported when the configuration is
// loaded.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		v.SetConfigFile(envConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".switchboard")
	}

	configErr = nil
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config file: %w", err)
		}
	}
}

// configErr holds a config file read failure until a command loads the
// configuration, so commands that do not need it still run.
var configErr error

// loadConfig returns the merged configuration, or the deferred file error.
// An explicitly set --port on cmd outranks PORT.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return nil, err
		}
		cfg.Server.Port = port
	}
	return cfg, nil
}
