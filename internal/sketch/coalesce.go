/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package sketch

import (
	"sync"
	"time"
)

// commitInterval bounds how often the commit tier delivers snapshots to the
// host. Interaction-tier state keeps updating at input rate regardless.
const commitInterval = time.Second / 60

// coalescer implements the commit tier: each publish stores the latest
// snapshot and, if no flush is pending, schedules one for the next tick. A
// flush always delivers the most recent stored value; values are overwritten,
// never queued, so the commit tier cannot build a backlog.
type coalescer struct {
	mu        sync.Mutex
	interval  time.Duration
	emit      func(Snapshot)
	pending   *Snapshot
	scheduled bool
	epoch     uint64
	closed    bool
}

func newCoalescer(interval time.Duration, emit func(Snapshot)) *coalescer {
	if interval <= 0 {
		interval = commitInterval
	}
	return &coalescer{interval: interval, emit: emit}
}

// publish stores s as the pending snapshot and schedules a flush unless one
// is already on its way.
func (c *coalescer) publish(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.emit == nil {
		return
	}
	c.pending = &s
	if c.scheduled {
		return
	}
	c.scheduled = true
	epoch := c.epoch
	time.AfterFunc(c.interval, func() { c.flush(epoch) })
}

func (c *coalescer) flush(epoch uint64) {
	c.mu.Lock()
	if c.closed || epoch != c.epoch || c.pending == nil {
		c.scheduled = false
		c.mu.Unlock()
		return
	}
	s := *c.pending
	c.pending = nil
	c.scheduled = false
	emit := c.emit
	c.mu.Unlock()
	emit(s)
}

// invalidate discards the pending snapshot and orphans any scheduled flush so
// no stale frame is delivered after a cancellation.
func (c *coalescer) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.pending = nil
	c.scheduled = false
}

// close stops all future deliveries and returns the undelivered snapshot, if
// any, so teardown can hand it to onExit.
func (c *coalescer) close() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.epoch++
	p := c.pending
	c.pending = nil
	return p
}
