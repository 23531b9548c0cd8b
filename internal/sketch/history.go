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

import "sync"

// History is the committed object list plus the undone stack. Granularity is
// one object per step: a stroke, shape, or text annotation. It is safe for
// concurrent use; history outlives individual gestures but not the session.
type History struct {
	mu        sync.Mutex
	committed []Object
	undone    []Object
}

func NewHistory(initial ...Object) *History {
	h := &History{}
	h.committed = append(h.committed, initial...)
	return h
}

// Commit appends an object to the committed tail. Any new commit permanently
// invalidates the undone stack.
func (h *History) Commit(o Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = append(h.committed, o)
	h.undone = nil
}

// Undo moves the committed tail onto the undone stack. No-op when empty.
func (h *History) Undo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.committed)
	if n == 0 {
		return false
	}
	h.undone = append(h.undone, h.committed[n-1])
	h.committed = h.committed[:n-1]
	return true
}

// Redo moves the top of the undone stack back to the committed tail. No-op
// when nothing was undone.
func (h *History) Redo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.undone)
	if n == 0 {
		return false
	}
	h.committed = append(h.committed, h.undone[n-1])
	h.undone = h.undone[:n-1]
	return true
}

// DropLast removes the committed tail without recording it for redo, but only
// when its id matches the caller's expectation. Used to revoke the first
// tap's mark when a tap pair turns out to be a double tap.
func (h *History) DropLast(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.committed)
	if n == 0 || objectID(h.committed[n-1]) != id {
		return false
	}
	h.committed = h.committed[:n-1]
	return true
}

func objectID(o Object) string {
	switch v := o.(type) {
	case Line:
		return v.ID
	case TextAnnotation:
		return v.ID
	}
	return ""
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = nil
	h.undone = nil
}

// Objects returns a copy of the committed list in commit order.
func (h *History) Objects() []Object {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Object(nil), h.committed...)
}

// Depth returns the committed and undone stack sizes for diagnostics.
func (h *History) Depth() (committed, undone int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.committed), len(h.undone)
}
