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
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitOrOpenAutosave(t.TempDir())
	if err != nil {
		t.Fatalf("InitOrOpenAutosave error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndLatestSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, _, ok, err := LatestSnapshot(ctx, db); err != nil || ok {
		t.Fatalf("empty trail: ok=%v err=%v", ok, err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s1 := sampleSnapshot()
	if err := SaveSnapshot(ctx, db, s1, base); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	s2 := sampleSnapshot()
	s2.Color = "#0000ff"
	if err := SaveSnapshot(ctx, db, s2, base.Add(time.Minute)); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	got, ts, ok, err := LatestSnapshot(ctx, db)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if got.Color != "#0000ff" {
		t.Fatalf("latest returned stale snapshot: %+v", got)
	}
	if !ts.Equal(base.Add(time.Minute)) {
		t.Fatalf("timestamp = %v", ts)
	}
	if len(got.Lines) != 1 || len(got.Lines[0].Points) != 3 {
		t.Fatalf("payload did not round trip: %+v", got)
	}
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := sampleSnapshot()
		s.Thickness = float64(i + 1)
		if err := SaveSnapshot(ctx, db, s, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	recs, err := ListSnapshots(ctx, db, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("listed %d records, want 3", len(recs))
	}
	if recs[0].Snapshot.Thickness != 5 || recs[2].Snapshot.Thickness != 3 {
		t.Fatalf("wrong order: %v, %v", recs[0].Snapshot.Thickness, recs[2].Snapshot.Thickness)
	}
}

func TestPruneOldSnapshots(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := SaveSnapshot(ctx, db, sampleSnapshot(), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	deleted, err := PruneOldSnapshots(ctx, db, 4)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 6 {
		t.Fatalf("deleted %d rows, want 6", deleted)
	}
	recs, err := ListSnapshots(ctx, db, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("%d records remain, want 4", len(recs))
	}
}

func TestAutosaverWritesLatestValue(t *testing.T) {
	db := openTestDB(t)
	a := NewAutosaver(db, 20*time.Millisecond, 10)

	s := sampleSnapshot()
	for i := 1; i <= 5; i++ {
		s.Thickness = float64(i)
		a.OnChange(s)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		got, _, ok, err := LatestSnapshot(context.Background(), db)
		if err != nil {
			t.Fatalf("latest: %v", err)
		}
		if ok && got.Thickness == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("autosave never persisted the last value (ok=%v)", ok)
		}
		time.Sleep(10 * time.Millisecond)
	}
	a.Close(nil)
}

func TestAutosaverCloseWritesFinalSnapshot(t *testing.T) {
	db := openTestDB(t)
	a := NewAutosaver(db, time.Hour, 10)

	final := sampleSnapshot()
	final.Color = "#00ff00"
	a.Close(&final)

	got, _, ok, err := LatestSnapshot(context.Background(), db)
	if err != nil || !ok {
		t.Fatalf("final snapshot missing: ok=%v err=%v", ok, err)
	}
	if got.Color != "#00ff00" {
		t.Fatalf("final snapshot = %+v", got)
	}
	// Further changes after close are ignored.
	a.OnChange(sampleSnapshot())
	time.Sleep(30 * time.Millisecond)
	got, _, _, _ = LatestSnapshot(context.Background(), db)
	if got.Color != "#00ff00" {
		t.Fatalf("closed autosaver accepted input")
	}
}
