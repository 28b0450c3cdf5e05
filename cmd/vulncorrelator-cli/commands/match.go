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
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/spf13/cobra"
)

func NewMatchCommand() *cobra.Command {
	matchCmd := cobra.Command{
		Use:   "match <scanID>",
		Short: "Correlate the packages of a scan with known vulnerabilities",
		Long: `Replaces the findings of the scan with freshly correlated ones.
Findings of other scans of the same asset are kept untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, _ := cmd.Flags().GetString("caller")
			showFindings, _ := cmd.Flags().GetBool("findings")

			var matchingService shared.MatchingService
			var findingRepository shared.FindingRepository
			stop, err := startApp(cmd.Context(), &matchingService, &findingRepository)
			if err != nil {
				return err
			}
			defer stop()

			s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
			s.Suffix = fmt.Sprintf(" Matching scan %s", args[0])
			s.Writer = os.Stderr
			s.Start()
			summary, err := matchingService.RunMatching(cmd.Context(), dtos.Caller{Name: caller, Source: "cli"}, args[0])
			s.Stop()
			if err != nil {
				return err
			}

			fmt.Println(summaryTable(summary).Render())
			if summary.Note != "" {
				fmt.Println(summary.Note)
			}

			if !showFindings || summary.TotalFindings == 0 {
				return nil
			}
			findings, err := findingRepository.ListByScan(nil, args[0])
			if err != nil {
				return err
			}
			fmt.Println(findingsTable(findings).Render())
			return nil
		},
	}

	matchCmd.Flags().String("caller", defaultCaller(), "name recorded as the caller of the matching run")
	matchCmd.Flags().Bool("findings", false, "print the findings after the run")
	return &matchCmd
}

func defaultCaller() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}

func summaryTable(summary dtos.MatchingSummary) table.Writer {
	tw := table.NewWriter()
	tw.AppendRows([]table.Row{
		{"Scan", summary.ScanID},
		{"Caller", summary.Caller},
		{"Packages", summary.TotalPackages},
		{"Vulnerable packages", summary.VulnerablePackages},
		{"Findings", summary.TotalFindings},
		{"Failed packages", summary.FailedPackages},
		{"Duration", fmt.Sprintf("%.2fs", summary.ElapsedSeconds)},
	})
	return tw
}

func findingsTable(findings []models.VulnerabilityFinding) table.Writer {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Package", "Installed", "Vulnerability", "CVSS", "Severity", "Match", "Confidence", "Priority"})
	for _, f := range findings {
		priority := ""
		if f.IsPriority {
			priority = "yes"
		}
		tw.AppendRow(table.Row{
			f.PackageName,
			f.PackageVersion,
			f.CVEID,
			strconv.FormatFloat(float64(f.BaseScore), 'f', 1, 32),
			f.BaseSeverity,
			f.MatchType,
			strconv.FormatFloat(f.MatchConfidence, 'f', 2, 64),
			priority,
		})
	}
	return tw
}
