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

package daemons

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"github.com/pkg/errors"
)

// VulnDBDaemon keeps the vulnerability database current by pulling nvd changes
// and mirroring the supplementary databases on a fixed interval.
type VulnDBDaemon struct {
	importService shared.VulnDBImportService
	interval      time.Duration
	lastSync      time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewVulnDBDaemon reads VULNDB_SYNC_INTERVAL (e.g. "12h"). An empty interval or
// DISABLE_VULNDB_UPDATE=true disables the daemon.
func NewVulnDBDaemon(importService shared.VulnDBImportService) (*VulnDBDaemon, error) {
	d := &VulnDBDaemon{importService: importService}
	if os.Getenv("DISABLE_VULNDB_UPDATE") == "true" {
		return d, nil
	}
	if raw := os.Getenv("VULNDB_SYNC_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid VULNDB_SYNC_INTERVAL")
		}
		d.interval = interval
	}
	return d, nil
}

func (d *VulnDBDaemon) Enabled() bool {
	return d.interval > 0
}

func (d *VulnDBDaemon) Start(ctx context.Context) {
	if !d.Enabled() {
		slog.Info("vulndb update disabled")
		return
	}
	// the first run only pulls the changes of one interval, the initial population is a cli task
	d.lastSync = time.Now().Add(-d.interval)

	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Go(func() {
		d.tick(ctx)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.tick(ctx)
			}
		}
	})
}

func (d *VulnDBDaemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *VulnDBDaemon) tick(ctx context.Context) {
	begin := time.Now()
	slog.Info("updating vulndb", "since", d.lastSync)

	stats, err := d.importService.Fetch(ctx, d.lastSync)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		monitoring.Alert("failed to fetch nvd changes", err)
		return
	}
	d.lastSync = begin

	if err := d.importService.Sync(ctx, []string{vulndb.DatabaseCISAKEV, vulndb.DatabaseEPSS}); err != nil && ctx.Err() == nil {
		monitoring.Alert("failed to mirror supplementary databases", err)
	}
	slog.Info("vulndb updated", "cves", stats.CVEs, "cpeMatches", stats.CPEMatches, "duration", time.Since(begin))
}
