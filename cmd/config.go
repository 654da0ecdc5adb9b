package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/switchboard/internal/config"
	"github.com/conneroisu/switchboard/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration after merging flags, environment variables, the
config file, and defaults.

Examples:
  switchboard config show
  PORT=8080 switchboard config show --format json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "output format (yaml, json)")
	AddFlagValidation(configShowCmd.Flags(), "format", OneOf("yaml", "json"))
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationError(err, viper.ConfigFileUsed()),
		)
	}

	out := cmd.OutOrStdout()
	if path := viper.ConfigFileUsed(); path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", path)
	}
	return writeConfig(out, cfg, configFormat)
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(configView(cfg))
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(configView(cfg)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}

// configView renders durations as strings ("5s") so the output can be pasted
// back into a config file.
func configView(cfg *config.Config) map[string]interface{} {
	s := cfg.Server
	l := cfg.Log
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":                s.Host,
			"port":                s.Port,
			"drain_timeout":       s.DrainTimeout.String(),
			"read_header_timeout": s.ReadHeaderTimeout.String(),
			"idle_timeout":        s.IdleTimeout.String(),
			"max_connections":     s.MaxConnections,
		},
		"log": map[string]interface{}{
			"level":        l.Level,
			"format":       l.Format,
			"file":         l.File,
			"max_size_mb":  l.MaxSizeMB,
			"max_backups":  l.MaxBackups,
			"max_age_days": l.MaxAgeDays,
			"compress":     l.Compress,
			"add_source":   l.AddSource,
		},
	}
}
