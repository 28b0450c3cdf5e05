// Copyright (C) 2025 l3montree GmbH
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
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"
)

func NewRulesCommand() *cobra.Command {
	rulesCmd := cobra.Command{
		Use:   "rules",
		Short: "Manage obsolescence rules",
	}

	rulesCmd.AddCommand(newRulesImportCommand())
	rulesCmd.AddCommand(newRulesListCommand())
	return &rulesCmd
}

func loadRules(path string) ([]models.ObsolescenceRule, error) {
	if path == "" {
		return vulndb.DefaultObsolescenceRules()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open rules: %w", err)
	}
	defer f.Close()
	return vulndb.LoadObsolescenceRules(f)
}

func newRulesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import obsolescence rules from a yaml file",
		Long: `Imports obsolescence rules from a yaml file. Rules are upserted by technology name.
Without a file the rules bundled with the binary are imported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			rules, err := loadRules(path)
			if err != nil {
				return err
			}

			var ruleRepository shared.ObsolescenceRuleRepository
			stop, err := startApp(cmd.Context(), &ruleRepository)
			if err != nil {
				return err
			}
			defer stop()

			if err := ruleRepository.UpsertByTechnology(nil, rules); err != nil {
				return err
			}
			slog.Info("imported obsolescence rules", "count", len(rules))
			return nil
		},
	}
}

func formatDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format(time.DateOnly)
}

func rulesTable(rules []models.ObsolescenceRule) table.Writer {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Technology", "Versions", "Obsolete", "End of support", "End of life", "Replacement"})
	for _, r := range rules {
		versions := utils.SafeDereference(r.VersionPattern)
		if versions == "" {
			versions = "*"
		}
		tw.AppendRow(table.Row{r.TechnologyName, versions, r.IsObsolete, formatDate(r.EndOfSupport), formatDate(r.EndOfLife), r.ReplacementRecommendation})
	}
	return tw
}

func newRulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all obsolescence rules",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ruleRepository shared.ObsolescenceRuleRepository
			stop, err := startApp(cmd.Context(), &ruleRepository)
			if err != nil {
				return err
			}
			defer stop()

			rules, err := ruleRepository.All()
			if err != nil {
				return err
			}
			fmt.Println(rulesTable(rules).Render())
			return nil
		},
	}
}
