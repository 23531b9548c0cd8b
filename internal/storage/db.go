/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "examsketch/internal/log"
	"examsketch/internal/version"
	"log/slog"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// AutosaveDirName stores all per-session ephemeral data under the session root.
	AutosaveDirName  = ".esk"
	AutosaveFileName = "session.sqlite"

	// schemaVersion tracks the local SQLite schema for the autosave database.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// AutosavePath returns the full path to the session's autosave database file.
func AutosavePath(sessionRoot string) string {
	return filepath.Join(sessionRoot, AutosaveDirName, AutosaveFileName)
}

// InitOrOpenAutosave ensures that the per-session SQLite database exists at
// .esk/session.sqlite, opens it, enables WAL mode, and ensures the
// meta/version and snapshot tables exist. The returned *sql.DB is ready for
// use; callers close it when no longer needed.
func InitOrOpenAutosave(sessionRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "autosave_init").With(
		slog.String("root", sessionRoot),
	)
	if strings.TrimSpace(sessionRoot) == "" {
		return nil, errors.New("session root is required")
	}
	if err := os.MkdirAll(filepath.Join(sessionRoot, AutosaveDirName), 0o755); err != nil {
		l.Error("create .esk dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .esk dir: %w", err)
	}

	path := AutosavePath(sessionRoot)
	// URI with shared cache and busy timeout. Forward slashes for the SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: a single connection avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureAutosaveSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure autosave schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("autosave db ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureAutosaveSchema creates the snapshot trail tables if they do not exist.
func ensureAutosaveSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Rolling trail of engine snapshots, newest last. payload is the
		// canonical JSON form of the snapshot.
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY,
			ts         TEXT NOT NULL,
			payload    BLOB NOT NULL,
			line_count INTEGER NOT NULL DEFAULT 0,
			text_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create autosave schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; leave a newer schema untouched.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Record object counts alongside each snapshot so pruning and
			// diagnostics do not need to parse payloads.
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`ALTER TABLE snapshots ADD COLUMN line_count INTEGER NOT NULL DEFAULT 0;`,
				`ALTER TABLE snapshots ADD COLUMN text_count INTEGER NOT NULL DEFAULT 0;`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					// Columns may already exist when the schema was created
					// fresh at the current version.
					if !strings.Contains(err.Error(), "duplicate column") {
						_ = tx.Rollback()
						return fmt.Errorf("migration %d stmt failed: %w", next, err)
					}
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; stop.
		}
		cur = next
	}
	return nil
}
