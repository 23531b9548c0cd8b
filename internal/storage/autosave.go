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
	"log/slog"
	"sync"
	"time"

	applog "examsketch/internal/log"
	"examsketch/internal/sketch"
)

// DefaultAutosaveInterval bounds how often the autosaver writes to disk.
const DefaultAutosaveInterval = 2 * time.Second

// DefaultKeepSnapshots is the autosave trail length kept after pruning.
const DefaultKeepSnapshots = 200

// Autosaver consumes engine snapshots (typically wired to the engine's
// onChange callback) and writes the latest one to the session's autosave
// database at a bounded rate. Intermediate snapshots within one interval are
// dropped; only the most recent value is persisted.
type Autosaver struct {
	mu        sync.Mutex
	db        *sql.DB
	interval  time.Duration
	keep      int
	pending   *sketch.Snapshot
	scheduled bool
	closed    bool
	wg        sync.WaitGroup
	log       *slog.Logger
}

// NewAutosaver wraps an open autosave database. interval <= 0 and keep <= 0
// select the defaults.
func NewAutosaver(db *sql.DB, interval time.Duration, keep int) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if keep <= 0 {
		keep = DefaultKeepSnapshots
	}
	return &Autosaver{
		db:       db,
		interval: interval,
		keep:     keep,
		log:      applog.WithComponent("autosave"),
	}
}

// OnChange records a snapshot for the next scheduled write. Safe to call from
// the engine's commit tier.
func (a *Autosaver) OnChange(s sketch.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = &s
	if a.scheduled {
		return
	}
	a.scheduled = true
	a.wg.Add(1)
	time.AfterFunc(a.interval, a.flush)
}

func (a *Autosaver) flush() {
	defer a.wg.Done()
	a.mu.Lock()
	s := a.pending
	a.pending = nil
	a.scheduled = false
	closed := a.closed
	a.mu.Unlock()
	if s == nil || closed {
		return
	}
	a.write(*s)
}

func (a *Autosaver) write(s sketch.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SaveSnapshot(ctx, a.db, s, time.Now()); err != nil {
		a.log.Error("autosave write failed", slog.Any("err", err))
		return
	}
	if _, err := PruneOldSnapshots(ctx, a.db, a.keep); err != nil {
		a.log.Warn("autosave prune failed", slog.Any("err", err))
	}
}

// Close writes any pending snapshot synchronously and stops the autosaver.
// Wire it to the engine's onExit path.
func (a *Autosaver) Close(final *sketch.Snapshot) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	a.wg.Wait()
	if final != nil {
		a.write(*final)
		return
	}
	if pending != nil {
		a.write(*pending)
	}
}
