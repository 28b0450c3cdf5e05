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
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func NewVulndbCommand() *cobra.Command {
	vulndbCmd := cobra.Command{
		Use:   "vulndb",
		Short: "Vulnerability database commands",
	}

	vulndbCmd.AddCommand(newImportCommand())
	vulndbCmd.AddCommand(newFetchCommand())
	vulndbCmd.AddCommand(newSyncCommand())
	return &vulndbCmd
}

func printImportStats(stats dtos.ImportStats, since time.Time) {
	slog.Info("import finished", "cves", stats.CVEs, "cpeMatches", stats.CPEMatches, "skipped", stats.Skipped, "duration", time.Since(since))
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an nvd 2.0 json feed",
		Long: `Imports an nvd 2.0 json feed file. Gzip (.gz) and xz (.xz) compressed feeds are detected automatically.
Use "-" to read the feed from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			if args[0] == "-" {
				r = os.Stdin
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("could not open feed: %w", err)
				}
				defer f.Close()

				size := int64(-1)
				if info, err := f.Stat(); err == nil {
					size = info.Size()
				}
				bar := progressbar.DefaultBytes(size, "importing")
				defer bar.Finish() // nolint: errcheck
				r = io.TeeReader(f, bar)
			}

			var importService shared.VulnDBImportService
			stop, err := startApp(cmd.Context(), &importService)
			if err != nil {
				return err
			}
			defer stop()

			now := time.Now()
			stats, err := importService.ImportFeed(cmd.Context(), r)
			if err != nil {
				return err
			}
			printImportStats(stats, now)
			return nil
		},
	}
}

// parseSince accepts a duration relative to now (48h), a date (2024-01-31) or a RFC3339 timestamp.
// An empty value means everything.
func parseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %q", value)
		}
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("could not parse %q as duration, date or timestamp", value)
}

func newFetchCommand() *cobra.Command {
	fetchCmd := cobra.Command{
		Use:   "fetch",
		Short: "Fetch cves from the nvd api",
		Long: `Fetches the cves modified since the given point in time from the nvd api.
Without --since the complete database is fetched which takes several hours.
Set NVD_API_KEY to raise the rate limit.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceFlag, _ := cmd.Flags().GetString("since")
			since, err := parseSince(sinceFlag, time.Now())
			if err != nil {
				return err
			}

			var importService shared.VulnDBImportService
			stop, err := startApp(cmd.Context(), &importService)
			if err != nil {
				return err
			}
			defer stop()

			now := time.Now()
			stats, err := importService.Fetch(cmd.Context(), since)
			if err != nil {
				return err
			}
			printImportStats(stats, now)
			return nil
		},
	}
	fetchCmd.Flags().String("since", "24h", "duration (48h), date (2024-01-31) or timestamp. Empty fetches everything")
	return &fetchCmd
}

func newSyncCommand() *cobra.Command {
	syncCmd := cobra.Command{
		Use:   "sync",
		Short: "Synchronize supplementary vulnerability data",
		Long: `Synchronizes supplementary vulnerability data from upstream sources:
  - CISA KEV (Known Exploited Vulnerabilities)
  - EPSS (Exploit Prediction Scoring System)
  - CWE (Common Weakness Enumeration names of the bundled catalog)

Use --databases flag to sync specific sources only.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			databases, _ := cmd.Flags().GetStringSlice("databases")

			var importService shared.VulnDBImportService
			stop, err := startApp(cmd.Context(), &importService)
			if err != nil {
				return err
			}
			defer stop()

			now := time.Now()
			if err := importService.Sync(cmd.Context(), databases); err != nil {
				return err
			}
			slog.Info("sync finished", "databases", databases, "duration", time.Since(now))
			return nil
		},
	}
	syncCmd.Flags().StringSlice("databases", []string{vulndb.DatabaseCISAKEV, vulndb.DatabaseEPSS}, "databases to sync. Possible values are: "+strings.Join(vulndb.SupportedDatabases, ", "))
	return &syncCmd
}
