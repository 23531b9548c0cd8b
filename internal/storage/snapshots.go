/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"examsketch/internal/sketch"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(ts, payload, line_count, text_count) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT ts, payload FROM snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT ts, payload FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE id NOT IN (
	SELECT id FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// SnapshotRecord is one entry of the autosave trail.
type SnapshotRecord struct {
	TS       time.Time
	Snapshot sketch.Snapshot
}

// SaveSnapshot persists an engine snapshot into the session's autosave trail.
func SaveSnapshot(ctx context.Context, db *sql.DB, snap sketch.Snapshot, ts time.Time) error {
	if db == nil {
		return errors.New("nil db")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, insertSnapshotSQL,
		ts.UTC().Format(time.RFC3339Nano), payload, len(snap.Lines), len(snap.TextAnnotations))
	return err
}

// LatestSnapshot returns the most recent autosaved snapshot, or ok=false if
// the trail is empty.
func LatestSnapshot(ctx context.Context, db *sql.DB) (sketch.Snapshot, time.Time, bool, error) {
	var zero sketch.Snapshot
	if db == nil {
		return zero, time.Time{}, false, errors.New("nil db")
	}
	var tsStr string
	var payload []byte
	err := db.QueryRowContext(ctx, selectLatestSnapshotSQL).Scan(&tsStr, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, time.Time{}, false, nil
	}
	if err != nil {
		return zero, time.Time{}, false, err
	}
	var snap sketch.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return zero, time.Time{}, false, err
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return snap, ts, true, nil
}

// ListSnapshots returns up to limit most recent autosave records, newest first.
func ListSnapshots(ctx context.Context, db *sql.DB, limit int) ([]SnapshotRecord, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []SnapshotRecord
	for rows.Next() {
		var tsStr string
		var payload []byte
		if err := rows.Scan(&tsStr, &payload); err != nil {
			return nil, err
		}
		var rec SnapshotRecord
		if err := json.Unmarshal(payload, &rec.Snapshot); err != nil {
			return nil, err
		}
		rec.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneOldSnapshots keeps at most keepLast records and deletes older ones.
func PruneOldSnapshots(ctx context.Context, db *sql.DB, keepLast int) (int64, error) {
	if db == nil {
		return 0, errors.New("nil db")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
