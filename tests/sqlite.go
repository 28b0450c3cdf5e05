// Copyright 2025 l3montree UG (haftungsbeschraenkt).
// SPDX-License-Identifier: 	AGPL-3.0-or-later

package tests

import (
	"path/filepath"
	"testing"

	"github.com/l3montree-dev/vulncorrelator/database/models"
	"github.com/l3montree-dev/vulncorrelator/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitSQLiteDatabase creates a file backed sqlite database inside of the test temp dir.
// WAL mode allows reads from other connections while a transaction is open.
func InitSQLiteDatabase(t testing.TB) shared.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "vulncorrelator.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("could not open sqlite database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Package{},
		&models.CVE{},
		&models.Weakness{},
		&models.CWE{},
		&models.CPEMatch{},
		&models.ManualCPEMapping{},
		&models.ObsolescenceRule{},
		&models.VulnerabilityFinding{},
	); err != nil {
		t.Fatalf("could not migrate sqlite database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
