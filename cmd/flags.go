package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conneroisu/switchboard/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagBinding ties a flag to the viper key it overrides.
type flagBinding struct {
	flag string
	key  string
}

func addLogFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-file", "", "also write logs to this file, rotated by size")

	AddFlagValidation(flags, "log-level", func(s string) error {
		_, err := logging.ParseLevel(s)
		return err
	})
	AddFlagValidation(flags, "log-format", OneOf("text", "json"))

	bindFlags(flags,
		flagBinding{"log-level", "log.level"},
		flagBinding{"log-format", "log.format"},
		flagBinding{"log-file", "log.file"},
	)
}

func addServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntP("port", "p", 3000, "port to listen on (0 picks a free port)")
	flags.String("host", "", "host to bind to (empty for all interfaces)")
	flags.Duration("drain-timeout", 0, "how long to wait for in-flight requests on shutdown (default 5s)")
	flags.Int("max-connections", 0, "cap on concurrently open connections (0 is unlimited)")

	AddFlagValidation(flags, "port", ValidatePort)

	bindFlags(flags,
		flagBinding{"port", "server.port"},
		flagBinding{"host", "server.host"},
		flagBinding{"drain-timeout", "server.drain_timeout"},
		flagBinding{"max-connections", "server.max_connections"},
	)
}

// bindFlags registers flags with the global viper instance. A flag only
// overrides other sources when it is set explicitly.
func bindFlags(flags *pflag.FlagSet, bindings ...flagBinding) {
	for _, b := range bindings {
		if f := flags.Lookup(b.flag); f != nil {
			_ = viper.BindPFlag(b.key, f)
		}
	}
}

// AddFlagValidation wraps a flag's value so that Set rejects bad input at
// parse time.
func AddFlagValidation(flags *pflag.FlagSet, name string, validator func(string) error) {
	f := flags.Lookup(name)
	if f == nil {
		return
	}
	f.Value = &validatingValue{Value: f.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 0 through 65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}
	return nil
}

// OneOf returns a validator accepting only the listed values.
func OneOf(allowed ...string) func(string) error {
	return func(s string) error {
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
	}
}
