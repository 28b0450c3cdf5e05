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

package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l3montree-dev/vulncorrelator/monitoring"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/lib/pq"
)

type PostgreSQLMessage struct {
	ID        string               `json:"id"`
	Channel   shared.PubSubChannel `json:"topic"`
	Payload   map[string]any       `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
	SenderID  string               `json:"sender_id,omitempty"`
}

type listeningConnection struct {
	conn        *pgxpool.Conn
	subscribers []chan map[string]any
}

// PostgreSQLBroker implements the PubSubBroker interface using LISTEN/NOTIFY.
// The import pipeline uses it to announce imported scans.
type PostgreSQLBroker struct {
	db           *pgxpool.Pool
	subscribers  map[shared.PubSubChannel]*listeningConnection
	subscribeMux sync.RWMutex
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc

	ID                       string
	shouldReceiveOwnMessages bool
}

var _ shared.PubSubBroker = &PostgreSQLBroker{}

func NewPostgreSQLBroker(db *pgxpool.Pool) *PostgreSQLBroker {
	ctx, cancel := context.WithCancel(context.Background())
	return &PostgreSQLBroker{
		db:          db,
		subscribers: make(map[shared.PubSubChannel]*listeningConnection),
		ID:          uuid.New().String(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (b *PostgreSQLBroker) SetShouldReceiveOwnMessages(should bool) {
	b.shouldReceiveOwnMessages = should
}

func (b *PostgreSQLBroker) Publish(ctx context.Context, message shared.PubSubMessage) error {
	pgMessage := PostgreSQLMessage{
		ID:        uuid.New().String(),
		Channel:   message.GetChannel(),
		Payload:   message.GetPayload(),
		Timestamp: time.Now(),
		SenderID:  b.ID,
	}

	messageJSON, err := json.Marshal(pgMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal PostgreSQL message: %w", err)
	}

	// pg_notify accepts the payload as a bind parameter
	if _, err = b.db.Exec(ctx, "SELECT pg_notify($1, $2)", string(pgMessage.Channel), string(messageJSON)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	slog.Debug("message published", "topic", pgMessage.Channel, "messageID", pgMessage.ID)
	return nil
}

func (b *PostgreSQLBroker) Subscribe(topic shared.PubSubChannel) (<-chan map[string]any, error) {
	b.subscribeMux.Lock()
	defer b.subscribeMux.Unlock()

	ch := make(chan map[string]any, 100)

	if listening, exists := b.subscribers[topic]; exists {
		listening.subscribers = append(listening.subscribers, ch)
		return ch, nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(b.ctx, 30*time.Second)
	defer cancel()
	conn, err := b.db.Acquire(ctxWithTimeout)
	if err != nil {
		close(ch)
		return nil, fmt.Errorf("failed to acquire connection for listening: %w", err)
	}
	if _, err = conn.Exec(ctxWithTimeout, "LISTEN "+pq.QuoteIdentifier(string(topic))); err != nil {
		conn.Release()
		close(ch)
		return nil, fmt.Errorf("failed to listen on topic %s: %w", topic, err)
	}

	b.subscribers[topic] = &listeningConnection{
		conn:        conn,
		subscribers: []chan map[string]any{ch},
	}
	b.wg.Go(func() {
		b.processMessages(topic, conn)
	})

	return ch, nil
}

func (b *PostgreSQLBroker) processMessages(topic shared.PubSubChannel, conn *pgxpool.Conn) {
	defer conn.Release()
	for {
		notification, err := conn.Conn().WaitForNotification(b.ctx)
		if err != nil {
			if b.ctx.Err() == nil {
				monitoring.Alert("could not listen for notifications from PostgreSQL broker", err)
			}
			return
		}
		if notification == nil || notification.Channel != string(topic) {
			continue
		}

		var message PostgreSQLMessage
		if err := json.Unmarshal([]byte(notification.Payload), &message); err != nil {
			slog.Error("failed to unmarshal message", "error", err, "payload", notification.Payload)
			continue
		}

		if message.SenderID == b.ID && !b.shouldReceiveOwnMessages {
			continue
		}

		b.subscribeMux.RLock()
		listening, exists := b.subscribers[topic]
		var subscribers []chan map[string]any
		if exists {
			subscribers = listening.subscribers
		}
		b.subscribeMux.RUnlock()

		for _, subscriber := range subscribers {
			select {
			case subscriber <- message.Payload:
			default:
				slog.Warn("subscriber channel full, dropping message", "topic", topic, "messageID", message.ID)
			}
		}
	}
}

// Close stops listening and closes all subscriber channels
func (b *PostgreSQLBroker) Close() {
	b.cancel()
	b.wg.Wait()

	b.subscribeMux.Lock()
	defer b.subscribeMux.Unlock()
	for topic, listening := range b.subscribers {
		for _, ch := range listening.subscribers {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
}

func (b *PostgreSQLBroker) IsHealthy(ctx context.Context) bool {
	b.subscribeMux.RLock()
	defer b.subscribeMux.RUnlock()

	for topic, listening := range b.subscribers {
		ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := listening.conn.Ping(ctxWithTimeout)
		cancel()
		if err != nil {
			slog.Error("listening connection is not healthy", "topic", topic, "error", err)
			return false
		}
	}
	return true
}
