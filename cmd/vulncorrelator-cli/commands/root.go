// Copyright (C) 2024 Tim Bastin, l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigFilename = "vulncorrelator"
	envPrefix             = "VULNCORRELATOR"
)

var rootCmd = &cobra.Command{
	SilenceUsage: true,
	Use:          "vulncorrelator-cli",
	Short:        "Management cli",
	Version:      version,
	Long: `The vulncorrelator cli correlates the packages of a scan with known vulnerabilities
and maintains the vulnerability database, the manual cpe mappings and the obsolescence rules.

Configuration can be provided via a ./vulncorrelator.yaml config file or environment
variables (prefix VULNCORRELATOR_). The database connection is configured with the
POSTGRES_* variables or a .env file.`,
	Example: `  # Correlate the packages of a scan
  vulncorrelator-cli match 6a0c2b9e-scan

  # Import a downloaded nvd feed
  vulncorrelator-cli vulndb import nvdcve-2.0-2024.json.gz

  # Mirror cisa kev and epss
  vulncorrelator-cli vulndb sync --databases cisa-kev --databases epss`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := cmd.Flags().GetString("logLevel")
		if err != nil {
			return err
		}
		shared.InitLoggerWithLevel(shared.ParseLogLevel(level))

		shared.LoadConfig() // nolint: errcheck
		return initializeConfig(cmd)
	},
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./vulncorrelator.yaml)")
	rootCmd.PersistentFlags().String("logLevel", "info", "Set the log level. Options: debug, info, warn, error")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("vulncorrelator-cli\n")
				fmt.Printf("Version:    %s\n", version)
				fmt.Printf("Commit:     %s\n", commit)
				fmt.Printf("Built:      %s\n", date)
			},
		},
		NewMatchCommand(),
		NewVulndbCommand(),
		NewRulesCommand(),
		NewMappingsCommand(),
		NewMigrateCommand(),
	)
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(defaultConfigFilename)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/vulncorrelator/")
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if there isn't a config file
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Debug("no config file found")
	}

	viper.SetEnvPrefix(envPrefix)
	// Environment variables can't have dashes in them, so bind them to their equivalent
	// keys with underscores, e.g. --log-level to VULNCORRELATOR_LOG_LEVEL
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	bindFlags(cmd)
	return nil
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && viper.IsSet(configName) {
			cmd.Flags().Set(f.Name, flagValue(viper.Get(configName))) // nolint: errcheck
		}

		if err := viper.BindPFlag(configName, f); err != nil {
			slog.Error("could not bind flag to viper", "err", err)
		}
	})
}

// flagValue renders a viper value the way pflag expects it. Lists from a config file become comma separated.
func flagValue(val any) string {
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, el := range v {
			parts = append(parts, fmt.Sprintf("%v", el))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
