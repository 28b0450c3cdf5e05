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
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/l3montree-dev/vulncorrelator/dtos"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/l3montree-dev/vulncorrelator/vulndb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	ch           chan map[string]any
	subscribedTo []shared.PubSubChannel
	err          error
}

func (b *fakeBroker) Publish(ctx context.Context, message shared.PubSubMessage) error {
	b.ch <- message.GetPayload()
	return nil
}

func (b *fakeBroker) Subscribe(topic shared.PubSubChannel) (<-chan map[string]any, error) {
	b.subscribedTo = append(b.subscribedTo, topic)
	return b.ch, b.err
}

type matchingCall struct {
	caller dtos.Caller
	scanID string
}

type fakeMatchingService struct {
	calls chan matchingCall
	err   error
}

func (s *fakeMatchingService) RunMatching(ctx context.Context, caller dtos.Caller, scanID string) (dtos.MatchingSummary, error) {
	s.calls <- matchingCall{caller: caller, scanID: scanID}
	return dtos.MatchingSummary{ScanID: scanID}, s.err
}

func TestMatchingDaemon(t *testing.T) {
	t.Run("should run the matching for every announced scan", func(t *testing.T) {
		broker := &fakeBroker{ch: make(chan map[string]any, 10)}
		service := &fakeMatchingService{calls: make(chan matchingCall, 10)}
		d := NewMatchingDaemon(broker, service)
		require.NoError(t, d.Start(context.Background()))
		defer d.Stop()

		assert.Equal(t, []shared.PubSubChannel{shared.ScanImportedChannel}, broker.subscribedTo)

		require.NoError(t, broker.Publish(context.Background(), shared.NewSimplePubSubMessage(shared.ScanImportedChannel, map[string]any{"scanId": "scan-1", "caller": "importer"})))
		// messages without scan id are dropped
		require.NoError(t, broker.Publish(context.Background(), shared.NewSimplePubSubMessage(shared.ScanImportedChannel, map[string]any{"caller": "importer"})))
		require.NoError(t, broker.Publish(context.Background(), shared.NewSimplePubSubMessage(shared.ScanImportedChannel, map[string]any{"scanId": "scan-2"})))

		first := <-service.calls
		assert.Equal(t, "scan-1", first.scanID)
		assert.Equal(t, "broker:importer", first.caller.String())

		second := <-service.calls
		assert.Equal(t, "scan-2", second.scanID)
		assert.Equal(t, "unknown", second.caller.Name)
	})

	t.Run("should keep listening after a failed matching", func(t *testing.T) {
		broker := &fakeBroker{ch: make(chan map[string]any, 10)}
		service := &fakeMatchingService{calls: make(chan matchingCall, 10), err: errors.New("purge failed")}
		d := NewMatchingDaemon(broker, service)
		require.NoError(t, d.Start(context.Background()))
		defer d.Stop()

		broker.ch <- map[string]any{"scanId": "scan-1"}
		broker.ch <- map[string]any{"scanId": "scan-2"}

		assert.Equal(t, "scan-1", (<-service.calls).scanID)
		assert.Equal(t, "scan-2", (<-service.calls).scanID)
	})

	t.Run("should fail to start when the subscription fails", func(t *testing.T) {
		broker := &fakeBroker{err: errors.New("no connection")}
		d := NewMatchingDaemon(broker, &fakeMatchingService{})
		assert.Error(t, d.Start(context.Background()))
		d.Stop()
	})

	t.Run("should stop when the channel is closed", func(t *testing.T) {
		broker := &fakeBroker{ch: make(chan map[string]any)}
		d := NewMatchingDaemon(broker, &fakeMatchingService{})
		require.NoError(t, d.Start(context.Background()))
		close(broker.ch)

		done := make(chan struct{})
		go func() {
			d.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop")
		}
	})
}

type fakeImportService struct {
	mu        sync.Mutex
	since     []time.Time
	databases [][]string
	fetched   chan struct{}
	fetchErr  error
}

func (s *fakeImportService) ImportFeed(ctx context.Context, r io.Reader) (dtos.ImportStats, error) {
	return dtos.ImportStats{}, nil
}

func (s *fakeImportService) Fetch(ctx context.Context, since time.Time) (dtos.ImportStats, error) {
	s.mu.Lock()
	s.since = append(s.since, since)
	s.mu.Unlock()
	return dtos.ImportStats{CVEs: 1}, s.fetchErr
}

func (s *fakeImportService) Sync(ctx context.Context, databases []string) error {
	s.mu.Lock()
	s.databases = append(s.databases, databases)
	s.mu.Unlock()
	s.fetched <- struct{}{}
	return nil
}

func TestVulnDBDaemon(t *testing.T) {
	t.Run("should be disabled without an interval", func(t *testing.T) {
		t.Setenv("VULNDB_SYNC_INTERVAL", "")
		d, err := NewVulnDBDaemon(&fakeImportService{})
		require.NoError(t, err)
		assert.False(t, d.Enabled())
		d.Start(context.Background())
		d.Stop()
	})

	t.Run("should be disabled explicitly", func(t *testing.T) {
		t.Setenv("VULNDB_SYNC_INTERVAL", "1h")
		t.Setenv("DISABLE_VULNDB_UPDATE", "true")
		d, err := NewVulnDBDaemon(&fakeImportService{})
		require.NoError(t, err)
		assert.False(t, d.Enabled())
	})

	t.Run("should reject an invalid interval", func(t *testing.T) {
		t.Setenv("VULNDB_SYNC_INTERVAL", "twice a day")
		_, err := NewVulnDBDaemon(&fakeImportService{})
		assert.Error(t, err)
	})

	t.Run("should fetch the changes of one interval and mirror kev and epss", func(t *testing.T) {
		t.Setenv("VULNDB_SYNC_INTERVAL", "1h")
		service := &fakeImportService{fetched: make(chan struct{}, 1)}
		d, err := NewVulnDBDaemon(service)
		require.NoError(t, err)

		d.Start(context.Background())
		<-service.fetched
		d.Stop()

		service.mu.Lock()
		defer service.mu.Unlock()
		require.Len(t, service.since, 1)
		assert.WithinDuration(t, time.Now().Add(-time.Hour), service.since[0], time.Minute)
		assert.Equal(t, [][]string{{vulndb.DatabaseCISAKEV, vulndb.DatabaseEPSS}}, service.databases)
	})
}
