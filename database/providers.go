// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newPoolWithLifecycle(lc fx.Lifecycle, cfg PoolConfig) (*pgxpool.Pool, error) {
	pool, err := NewPgxConnPool(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		pool.Close()
		return nil
	}})
	return pool, nil
}

func BrokerFactory(lc fx.Lifecycle, pool *pgxpool.Pool) shared.PubSubBroker {
	broker := NewPostgreSQLBroker(pool)
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		broker.Close()
		return nil
	}})
	return broker
}

// Module expects a PoolConfig to be supplied
var Module = fx.Options(
	fx.Provide(newPoolWithLifecycle),
	fx.Provide(func(pool *pgxpool.Pool) (*gorm.DB, error) {
		return NewGormDB(pool)
	}),
	fx.Provide(BrokerFactory),
)
