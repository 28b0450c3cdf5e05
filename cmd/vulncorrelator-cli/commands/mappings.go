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
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/utils"
	"github.com/spf13/cobra"
)

func NewMappingsCommand() *cobra.Command {
	mappingsCmd := cobra.Command{
		Use:   "mappings",
		Short: "Manage manual cpe mappings",
	}

	mappingsCmd.AddCommand(newMappingsListCommand())
	mappingsCmd.AddCommand(newMappingsDeactivateCommand())
	return &mappingsCmd
}

func mappingsTable(mappings []models.ManualCPEMapping) table.Writer {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Package", "Version", "CPE", "Confidence", "Usage", "Last used"})
	for _, m := range mappings {
		version := utils.SafeDereference(m.PackageVersion)
		if version == "" {
			version = "*"
		}
		lastUsed := ""
		if m.LastUsedAt != nil {
			lastUsed = m.LastUsedAt.Format(time.DateTime)
		}
		tw.AppendRow(table.Row{m.ID, m.PackageName, version, m.CPEURI, m.ConfidenceLevel, m.UsageCount, lastUsed})
	}
	return tw
}

func newMappingsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active manual cpe mappings",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var manualMappingRepository shared.ManualMappingRepository
			stop, err := startApp(cmd.Context(), &manualMappingRepository)
			if err != nil {
				return err
			}
			defer stop()

			mappings, err := manualMappingRepository.ListActive(nil)
			if err != nil {
				return err
			}
			fmt.Println(mappingsTable(mappings).Render())
			return nil
		},
	}
}

func newMappingsDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <mappingID>",
		Short: "Deactivate a manual cpe mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid mapping id: %w", err)
			}

			var manualMappingRepository shared.ManualMappingRepository
			stop, err := startApp(cmd.Context(), &manualMappingRepository)
			if err != nil {
				return err
			}
			defer stop()

			if _, err := manualMappingRepository.Read(id); err != nil {
				return fmt.Errorf("could not find mapping %s: %w", id, err)
			}
			if err := manualMappingRepository.Deactivate(nil, id); err != nil {
				return err
			}
			slog.Info("deactivated mapping", "id", id)
			return nil
		},
	}
}
