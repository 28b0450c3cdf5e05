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
	"sync"

	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/pkg/errors"
)

const brokerCallerSource = "broker"

// MatchingDaemon runs the matching for every scan announced on the scanImported channel.
// Scans are matched one after another.
type MatchingDaemon struct {
	broker          shared.PubSubBroker
	matchingService shared.MatchingService

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMatchingDaemon(broker shared.PubSubBroker, matchingService shared.MatchingService) *MatchingDaemon {
	return &MatchingDaemon{
		broker:          broker,
		matchingService: matchingService,
	}
}

func (d *MatchingDaemon) Start(ctx context.Context) error {
	ch, err := d.broker.Subscribe(shared.ScanImportedChannel)
	if err != nil {
		return errors.Wrap(err, "could not subscribe to scan imported channel")
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Go(func() {
		d.listen(ctx, ch)
	})
	slog.Info("listening for imported scans", "channel", shared.ScanImportedChannel)
	return nil
}

func (d *MatchingDaemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *MatchingDaemon) listen(ctx context.Context, ch <-chan map[string]any) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				slog.Info("scan imported channel closed")
				return
			}
			d.handle(ctx, payload)
		}
	}
}

func (d *MatchingDaemon) handle(ctx context.Context, payload map[string]any) {
	scanID, _ := payload["scanId"].(string)
	if scanID == "" {
		slog.Warn("received scan imported message without scan id", "payload", payload)
		return
	}
	callerName, _ := payload["caller"].(string)
	if callerName == "" {
		callerName = "unknown"
	}

	summary, err := d.matchingService.RunMatching(ctx, dtos.Caller{Name: callerName, Source: brokerCallerSource}, scanID)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("matching interrupted by shutdown", "scanID", scanID)
			return
		}
		monitoring.Alert("could not run matching for imported scan", err)
		return
	}
	slog.Info("matched imported scan", "scanID", scanID, "findings", summary.TotalFindings, "elapsedSeconds", summary.ElapsedSeconds)
}
