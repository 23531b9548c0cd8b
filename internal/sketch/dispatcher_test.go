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
	"math"
	"testing"

	"examsketch/internal/geom"
)

// newTestEngine builds an engine whose viewport matches the canvas, so the
// initial transform is the identity and screen coordinates equal logical
// coordinates.
func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.CanvasWidth == 0 {
		cfg.CanvasWidth, cfg.CanvasHeight = 1000, 1000
	}
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = cfg.CanvasWidth, cfg.CanvasHeight
	}
	e := New(cfg)
	t.Cleanup(e.Close)
	return e
}

func touch(e *Engine, id int, x, y float64, ph Phase, fingers int) {
	e.HandleTouch(Sample{Pointer: id, X: x, Y: y, Phase: ph, Fingers: fingers})
}

func committedLines(e *Engine) []Line {
	var out []Line
	for _, o := range e.Objects() {
		if l, ok := o.(Line); ok {
			out = append(out, l)
		}
	}
	return out
}

func TestFreehandStrokeCommitsOnLift(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil, InitialColor: "#ff0000", InitialThickness: 2})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 10, 0, PhaseMove, 1)
	touch(e, 1, 20, 0, PhaseMove, 1)
	if e.State() != StateDrawing {
		t.Fatalf("state during stroke = %v, want drawing", e.State())
	}
	touch(e, 1, 30, 0, PhaseEnd, 1)

	lines := committedLines(e)
	if len(lines) != 1 {
		t.Fatalf("committed %d lines, want 1", len(lines))
	}
	l := lines[0]
	if l.Tool != ToolPencil || l.Color != "#ff0000" || l.Thickness != 2 {
		t.Fatalf("stroke attributes not captured: %+v", l)
	}
	if len(l.Points) != 4 {
		t.Fatalf("retained %d points, want 4", len(l.Points))
	}
	p, ok := e.Path(l.ID)
	if !ok {
		t.Fatalf("no smoothed path cached for committed stroke")
	}
	if p.Cmds[0].Data[0] != 0 || p.Cmds[0].Data[1] != 0 {
		t.Fatalf("smoothed path does not start at first point: %+v", p.Cmds[0])
	}
	if e.State() != StateIdle {
		t.Fatalf("state after lift = %v, want idle", e.State())
	}
}

func TestFreehandAppendThreshold(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 0.2, 0, PhaseMove, 1)
	touch(e, 1, 0.5, 0, PhaseMove, 1)
	touch(e, 1, 1.0, 0, PhaseMove, 1)
	touch(e, 1, 1.0, 0, PhaseEnd, 1)

	lines := committedLines(e)
	if len(lines) != 1 {
		t.Fatalf("committed %d lines, want 1", len(lines))
	}
	// Only the start point and the one move that travelled >= 0.75 survive.
	if got := len(lines[0].Points); got != 2 {
		t.Fatalf("retained %d points, want 2", got)
	}
}

func TestPreviewEndpointTracksLastRetainedPoint(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	for i := 1; i <= 250; i++ {
		touch(e, 1, float64(i), 0, PhaseMove, 1)
	}
	p, ok := e.PreviewPath()
	if !ok {
		t.Fatalf("no preview during active stroke")
	}
	if got := len(p.Cmds); got > previewWindow {
		t.Fatalf("preview holds %d commands, window is %d", got, previewWindow)
	}
	end, ok := p.End()
	if !ok || end.X != 250 || end.Y != 0 {
		t.Fatalf("preview endpoint = %v, want (250,0)", end)
	}
	touch(e, 1, 250, 0, PhaseEnd, 1)
	if _, ok := e.PreviewPath(); ok {
		t.Fatalf("preview still live after commit")
	}
}

func TestNonFiniteSampleDropped(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, math.NaN(), 0, PhaseStart, 1)
	touch(e, 1, math.Inf(1), 0, PhaseStart, 1)
	if e.State() != StateIdle {
		t.Fatalf("non-finite sample mutated state: %v", e.State())
	}
	if len(e.Objects()) != 0 {
		t.Fatalf("non-finite sample produced objects")
	}
}

func TestStalePointerIgnored(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	// Pointer 9 never went down in this episode.
	touch(e, 9, 500, 500, PhaseMove, 1)
	touch(e, 9, 500, 500, PhaseEnd, 1)
	if e.State() != StateDrawing {
		t.Fatalf("stale pointer disturbed the active gesture: %v", e.State())
	}
	touch(e, 1, 10, 0, PhaseEnd, 1)
	lines := committedLines(e)
	if len(lines) != 1 || lines[0].Points[len(lines[0].Points)-1].X != 10 {
		t.Fatalf("stale pointer corrupted the stroke: %+v", lines)
	}
}

func TestMultiTouchCancelsInFlightStroke(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 40, 0, PhaseMove, 1)
	touch(e, 2, 200, 200, PhaseStart, 2)
	touch(e, 1, 80, 0, PhaseMove, 2)
	touch(e, 2, 200, 200, PhaseEnd, 2)
	// Finger count dropped back to one: the episode stays gated.
	touch(e, 1, 120, 0, PhaseMove, 1)
	touch(e, 1, 120, 0, PhaseEnd, 1)

	if n := len(e.Objects()); n != 0 {
		t.Fatalf("cancelled stroke reached history: %d objects", n)
	}
	if e.State() != StateIdle {
		t.Fatalf("state after episode = %v, want idle", e.State())
	}
}

func TestPanToolNeverInks(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPan})
	touch(e, 1, 100, 100, PhaseStart, 1)
	touch(e, 1, 200, 100, PhaseMove, 1)
	touch(e, 1, 200, 100, PhaseEnd, 1)
	if n := len(e.Objects()); n != 0 {
		t.Fatalf("pan tool produced %d objects", n)
	}
}

func TestToolCapturedAtGestureStart(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 10, 0, PhaseMove, 1)
	e.SetTool(ToolRect)
	touch(e, 1, 20, 0, PhaseMove, 1)
	touch(e, 1, 20, 0, PhaseEnd, 1)

	lines := committedLines(e)
	if len(lines) != 1 || lines[0].Tool != ToolPencil {
		t.Fatalf("mid-gesture tool change leaked into the stroke: %+v", lines)
	}
	if e.Tool() != ToolRect {
		t.Fatalf("selected tool = %v, want rectangle for the next gesture", e.Tool())
	}
}

func TestSwitchToPanCancelsDraft(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 50, 0, PhaseMove, 1)
	e.SetTool(ToolPan)
	touch(e, 1, 100, 0, PhaseEnd, 1)
	if n := len(e.Objects()); n != 0 {
		t.Fatalf("draft survived switch to pan: %d objects", n)
	}
}

func TestCancelPhaseDiscardsDraft(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 50, 0, PhaseMove, 1)
	touch(e, 1, 50, 0, PhaseCancel, 1)
	if n := len(e.Objects()); n != 0 {
		t.Fatalf("cancelled draft reached history")
	}
	if e.State() != StateIdle {
		t.Fatalf("state after cancel = %v, want idle", e.State())
	}
}

func TestShapeBelowMinimumSpanDiscarded(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolLine})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 2, 2, PhaseMove, 1)
	touch(e, 1, 2, 2, PhaseEnd, 1)
	if n := len(e.Objects()); n != 0 {
		t.Fatalf("2.83px shape was committed")
	}
}

func TestShapeCommitKeepsBoundsOnly(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolLine})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 10, 10, PhaseMove, 1)
	touch(e, 1, 10, 10, PhaseEnd, 1)

	lines := committedLines(e)
	if len(lines) != 1 {
		t.Fatalf("committed %d lines, want 1", len(lines))
	}
	l := lines[0]
	if l.ShapeKind != ShapeLine {
		t.Fatalf("shapeKind = %q, want line", l.ShapeKind)
	}
	if l.Bounds == nil || *l.Bounds != (Bounds{X1: 0, Y1: 0, X2: 10, Y2: 10}) {
		t.Fatalf("bounds = %+v, want {0 0 10 10}", l.Bounds)
	}
	if len(l.Points) != 0 {
		t.Fatalf("shape line carries %d points, want none", len(l.Points))
	}
}

func TestDoubleTapResetsViewAndLeavesNoMark(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	// Disturb the transform with a pinch first.
	touch(e, 1, 400, 500, PhaseStart, 1)
	touch(e, 2, 600, 500, PhaseStart, 2)
	touch(e, 1, 300, 500, PhaseMove, 2)
	touch(e, 2, 700, 500, PhaseMove, 2)
	touch(e, 1, 300, 500, PhaseEnd, 2)
	touch(e, 2, 700, 500, PhaseEnd, 1)

	touch(e, 1, 500, 500, PhaseStart, 1)
	touch(e, 1, 500, 500, PhaseEnd, 1)
	touch(e, 1, 502, 501, PhaseStart, 1)
	touch(e, 1, 502, 501, PhaseEnd, 1)

	waitForTransform(t, e, func(tf geom.Transform) bool {
		return tf.Zoom == 1 && tf.PanX == 0 && tf.PanY == 0
	})
	if n := len(e.Objects()); n != 0 {
		t.Fatalf("double tap left %d marks", n)
	}
	// The first tap's dot was revoked outright, not undone.
	if e.Redo() {
		t.Fatalf("revoked tap dot reappeared via redo")
	}
}

func TestSeparatedTapsCommitTwoDots(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 100, 100, PhaseStart, 1)
	touch(e, 1, 100, 100, PhaseEnd, 1)
	// Far outside the pairing span: both taps stand as dots.
	touch(e, 1, 400, 400, PhaseStart, 1)
	touch(e, 1, 400, 400, PhaseEnd, 1)

	if n := len(committedLines(e)); n != 2 {
		t.Fatalf("committed %d dots, want 2", n)
	}
	if tf := e.Transform(); tf.Zoom != 1 || tf.PanX != 0 || tf.PanY != 0 {
		t.Fatalf("separated taps disturbed the view: %+v", tf)
	}
}

func TestShapeAttributesCapturedAtGestureStart(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolRect, InitialColor: "#1a1a1a", InitialThickness: 3})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 40, 30, PhaseMove, 1)
	e.SetColor("#d32f2f")
	e.SetThickness(8)
	touch(e, 1, 80, 60, PhaseMove, 1)
	touch(e, 1, 80, 60, PhaseEnd, 1)

	lines := committedLines(e)
	if len(lines) != 1 {
		t.Fatalf("committed %d lines, want 1", len(lines))
	}
	if lines[0].Color != "#1a1a1a" || lines[0].Thickness != 3 {
		t.Fatalf("mid-gesture attribute change leaked into the shape: %+v", lines[0])
	}
	if e.Color() != "#d32f2f" || e.Thickness() != 8 {
		t.Fatalf("selected attributes not kept for the next gesture")
	}
}

func TestTextColorCapturedAtDraftStart(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolText, InitialColor: "#1a1a1a"})
	touch(e, 1, 100, 100, PhaseStart, 1)
	touch(e, 1, 300, 200, PhaseMove, 1)
	touch(e, 1, 300, 200, PhaseEnd, 1)
	// Color switched while the host modal is open.
	e.SetColor("#d32f2f")
	e.SubmitTextDraft("answer")

	objs := e.Objects()
	if len(objs) != 1 {
		t.Fatalf("%d objects after submit", len(objs))
	}
	if ta := objs[0].(TextAnnotation); ta.Color != "#1a1a1a" {
		t.Fatalf("modal-time color leaked into the annotation: %+v", ta)
	}
}

func TestFingerCountOnMoveLatchesMultiTouch(t *testing.T) {
	e := newTestEngine(t, Config{InitialTool: ToolPencil})
	touch(e, 1, 0, 0, PhaseStart, 1)
	touch(e, 1, 40, 0, PhaseMove, 1)
	// The driver folded the second finger's down into a move sample.
	touch(e, 1, 80, 0, PhaseMove, 2)
	touch(e, 1, 120, 0, PhaseMove, 1)
	touch(e, 1, 120, 0, PhaseEnd, 1)

	if n := len(e.Objects()); n != 0 {
		t.Fatalf("gated episode committed %d objects", n)
	}
	if e.State() != StateIdle {
		t.Fatalf("state after episode = %v, want idle", e.State())
	}
}

func TestShapeKindsPerTool(t *testing.T) {
	for tool, kind := range map[Tool]ShapeKind{
		ToolLine:    ShapeLine,
		ToolRect:    ShapeRectangle,
		ToolEllipse: ShapeEllipse,
	} {
		e := newTestEngine(t, Config{InitialTool: tool})
		touch(e, 1, 0, 0, PhaseStart, 1)
		touch(e, 1, 60, 40, PhaseMove, 1)
		touch(e, 1, 60, 40, PhaseEnd, 1)
		lines := committedLines(e)
		if len(lines) != 1 || lines[0].ShapeKind != kind {
			t.Fatalf("tool %v: got %+v, want shapeKind %v", tool, lines, kind)
		}
		e.Close()
	}
}
