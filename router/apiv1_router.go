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


package router

import (
	"os"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l3montree-dev/vulncorrelator/controllers"
	"github.com/l3montree-dev/vulncorrelator/database"
	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIV1Router struct {
	*echo.Group
}

func NewAPIV1Router(srv *echo.Echo,
	db shared.DB,
	pool *pgxpool.Pool,
	matchingController *controllers.MatchingController,
	manualMappingController *controllers.ManualMappingController,
) APIV1Router {
	apiV1Router := srv.Group("/api/v1")

	apiV1Router.GET("/info/", func(c echo.Context) error {
		return c.JSON(200, collectInfo(db, pool))
	})

	apiV1Router.GET("/metrics/", echo.WrapHandler(promhttp.Handler()))
	apiV1Router.GET("/health/", func(ctx echo.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return ctx.JSON(503, map[string]string{
				"status": "unhealthy",
				"error":  "failed to get database instance",
			})
		}

		if err := sqlDB.PingContext(ctx.Request().Context()); err != nil {
			return ctx.JSON(503, map[string]string{
				"status": "unhealthy",
				"error":  "database ping failed",
			})
		}

		return ctx.JSON(200, map[string]string{
			"status": "healthy",
		})
	})

	scanRouter := apiV1Router.Group("/scans/:scanID")
	scanRouter.POST("/matching/", matchingController.RunMatching)
	scanRouter.GET("/findings/", matchingController.ListFindings)

	mappingRouter := apiV1Router.Group("/mappings")
	mappingRouter.GET("/", manualMappingController.List)
	mappingRouter.POST("/", manualMappingController.Create)
	mappingRouter.DELETE("/:mappingID/", manualMappingController.Deactivate)

	return APIV1Router{Group: apiV1Router}
}

func collectInfo(db shared.DB, pool *pgxpool.Pool) InfoResponse {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := InfoResponse{
		Build: BuildInfo{
			Version:   Version,
			Commit:    Commit,
			BuildDate: BuildDate,
		},
		Runtime: RuntimeInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			Mem: MemStats{
				Alloc:      mem.Alloc,
				TotalAlloc: mem.TotalAlloc,
				Sys:        mem.Sys,
				HeapAlloc:  mem.HeapAlloc,
			},
		},
		Process: ProcessInfo{
			PID:           os.Getpid(),
			UptimeSeconds: int(time.Since(StartedAt).Seconds()),
		},
	}

	if host, _ := os.Hostname(); host != "" {
		resp.Process.Hostname = host
	}

	poolCfg := database.GetPoolConfigFromEnv()
	poolInfo := PoolInfo{
		DBName:          poolCfg.DBName,
		MaxOpenConns:    poolCfg.MaxOpenConns,
		ConnMaxLifetime: poolCfg.ConnMaxLifetime.String(),
		ConnMaxIdleTime: poolCfg.ConnMaxIdleTime.String(),
	}

	dbInfo := DatabaseInfo{Status: "unknown"}
	sqlDB, err := db.DB()
	if err != nil {
		errMsg := "failed to get database instance"
		dbInfo.Status = "unhealthy"
		dbInfo.Error = &errMsg
		resp.Database = dbInfo
		return resp
	}
	if err := sqlDB.Ping(); err != nil {
		errMsg := "database ping failed"
		dbInfo.Status = "unhealthy"
		dbInfo.Error = &errMsg
		resp.Database = dbInfo
		return resp
	}
	dbInfo.Status = "healthy"

	if pool != nil {
		stats := pool.Stat()
		dbInfo.OpenConnections = int(stats.TotalConns())
		dbInfo.InUse = int(stats.AcquiredConns())
		dbInfo.Idle = int(stats.IdleConns())
		dbInfo.MaxOpenConnections = int(stats.MaxConns())

		poolInfo.TotalConns = int(stats.TotalConns())
		poolInfo.IdleConns = int(stats.IdleConns())
		poolInfo.AcquiredConns = int(stats.AcquiredConns())
		poolInfo.MaxConns = int(stats.MaxConns())
		dbInfo.Pool = &poolInfo

		if ver, dirty, err := database.GetMigrationVersionWithDB(db); err == nil {
			dbInfo.MigrationVersion = &ver
			dbInfo.MigrationDirty = &dirty
		} else {
			errStr := err.Error()
			dbInfo.MigrationError = &errStr
		}
	} else {
		dbInfo.DBStats = sqlDB.Stats()
	}
	resp.Database = dbInfo

	db.Model(&models.CVE{}).Count(&resp.VulnDB.CVEs)
	db.Model(&models.CPEMatch{}).Count(&resp.VulnDB.CPEMatches)
	var latest models.CVE
	if err := db.Order("date_last_modified DESC").Limit(1).Find(&latest).Error; err == nil && latest.CVE != "" {
		resp.VulnDB.LastModified = &latest.DateLastModified
	}
	return resp
}
