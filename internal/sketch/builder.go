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
	"github.com/google/uuid"

	"examsketch/internal/geom"
)

const (
	// appendThreshold bounds point density on fast strokes: a new point is
	// retained only when at least this far from the last retained one.
	appendThreshold = 0.75

	// previewWindow is the sliding tail of the active stroke used for the
	// live preview path.
	previewWindow = 100

	// minShapeSpan discards shape drafts smaller than an accidental tap.
	minShapeSpan = 5.0
)

func (e *Engine) beginStrokeLocked(p geom.Pt) {
	e.active = &Line{
		ID:        uuid.NewString(),
		Tool:      e.gestureTool,
		Color:     e.gestureColor,
		Thickness: e.gestureThickness,
		Points:    []geom.Pt{p},
	}
	e.state = StateDrawing
}

func (e *Engine) extendStrokeLocked(p geom.Pt) {
	if e.active == nil {
		return
	}
	last := e.active.Points[len(e.active.Points)-1]
	if geom.Dist(last, p) < appendThreshold {
		return
	}
	e.active.Points = append(e.active.Points, p)
}

// commitStrokeLocked moves the active stroke into history and returns its id.
// Smoothing runs once here, over the full point list; the preview never
// smoothed.
func (e *Engine) commitStrokeLocked() string {
	if e.active == nil {
		return ""
	}
	l := *e.active
	e.active = nil
	e.paths[l.ID] = geom.Smooth(l.Points)
	e.history.Commit(l)
	return l.ID
}

func (e *Engine) beginShapeLocked(p geom.Pt) {
	e.shapeStart = p
	e.shapeCur = p
	e.state = StateShapeDraft
}

// commitShapeLocked commits the shape draft as a bounds-only Line and returns
// its id, or discards the draft when the drag stayed under the minimum span.
func (e *Engine) commitShapeLocked() string {
	if e.state != StateShapeDraft {
		return ""
	}
	if geom.Dist(e.shapeStart, e.shapeCur) < minShapeSpan {
		return ""
	}
	l := Line{
		ID:        uuid.NewString(),
		Tool:      e.gestureTool,
		Color:     e.gestureColor,
		Thickness: e.gestureThickness,
		ShapeKind: shapeKindFor(e.gestureTool),
		Bounds: &Bounds{
			X1: e.shapeStart.X, Y1: e.shapeStart.Y,
			X2: e.shapeCur.X, Y2: e.shapeCur.Y,
		},
	}
	e.history.Commit(l)
	return l.ID
}

func (e *Engine) beginTextLocked(p geom.Pt) {
	e.textStart = p
	e.textCur = p
	e.pendingText = nil
	e.state = StateTextDraft
}

// finishTextDraftLocked stores the drafting rect and hands it back so the
// dispatcher can ask the host for content outside the lock.
func (e *Engine) finishTextDraftLocked() *Bounds {
	if e.state != StateTextDraft {
		return nil
	}
	b := Bounds{X1: e.textStart.X, Y1: e.textStart.Y, X2: e.textCur.X, Y2: e.textCur.Y}
	e.pendingText = &b
	return &b
}

// cancelDraftLocked discards any in-flight draft without touching history.
// Safe to call in any state.
func (e *Engine) cancelDraftLocked() {
	e.active = nil
	e.pendingText = nil
	if e.state == StateDrawing || e.state == StateShapeDraft || e.state == StateTextDraft {
		e.state = StateIdle
	}
	e.out.invalidate()
}

// PreviewPath returns the live preview of the active stroke, built from at
// most the last previewWindow points. Its endpoint always tracks the most
// recently retained point.
func (e *Engine) PreviewPath() (geom.Path, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return geom.Path{}, false
	}
	pts := e.active.Points
	if len(pts) > previewWindow {
		pts = pts[len(pts)-previewWindow:]
	}
	return geom.Polyline(pts), true
}

// ShapeDraft returns the live shape preview bounds while one is in flight.
func (e *Engine) ShapeDraft() (ShapeKind, Bounds, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateShapeDraft {
		return "", Bounds{}, false
	}
	return shapeKindFor(e.gestureTool), Bounds{
		X1: e.shapeStart.X, Y1: e.shapeStart.Y,
		X2: e.shapeCur.X, Y2: e.shapeCur.Y,
	}, true
}

// TextDraft returns the live text drafting rect, either while dragging or
// while waiting for the host modal.
func (e *Engine) TextDraft() (Bounds, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateTextDraft {
		return Bounds{X1: e.textStart.X, Y1: e.textStart.Y, X2: e.textCur.X, Y2: e.textCur.Y}, true
	}
	if e.pendingText != nil {
		return *e.pendingText, true
	}
	return Bounds{}, false
}
