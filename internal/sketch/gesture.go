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
	"time"

	"examsketch/internal/geom"
)

const (
	// ZoomStepFactor is the multiplier applied by the host's zoom buttons.
	ZoomStepFactor = 1.2

	// A pinch whose scale stays within this band of 1 is reported as
	// Panning rather than Zooming.
	zoomStateBand = 0.02

	viewAnimDuration = 200 * time.Millisecond
	viewAnimStep     = 16 * time.Millisecond
)

// enterMultiTouchLocked latches the multi-touch episode. The latch survives
// until every finger lifts; any in-flight single-finger draft is discarded,
// never committed.
func (e *Engine) enterMultiTouchLocked() {
	if !e.multiTouch {
		e.multiTouch = true
		e.cancelDraftLocked()
	}
	e.rebaselineMultiTouchLocked()
}

// rebaselineMultiTouchLocked re-anchors the pinch baseline at the current
// pointer positions. Called whenever the finger set changes.
func (e *Engine) rebaselineMultiTouchLocked() {
	if len(e.pointers) < 2 {
		return
	}
	e.startCentroid, e.startSpan = centroidSpan(e.pointers)
	e.startTF = e.tf
	e.state = StatePanning
}

func (e *Engine) updateMultiTouchLocked() {
	if len(e.pointers) < 2 {
		return
	}
	c, span := centroidSpan(e.pointers)

	scale := 1.0
	if e.startSpan > 0 && span > 0 {
		scale = span / e.startSpan
	}
	zoom := geom.ClampZoom(e.startTF.Zoom * scale)

	// Anchor the gesture start centroid: with an unchanged zoom this is
	// exactly startPan + translation.
	factor := zoom / e.startTF.Zoom
	tf := geom.Transform{
		PanX: c.X - (e.startCentroid.X-e.startTF.PanX)*factor,
		PanY: c.Y - (e.startCentroid.Y-e.startTF.PanY)*factor,
		Zoom: zoom,
	}
	e.tf = geom.ClampTransform(tf, e.viewW, e.viewH, e.canvasW, e.canvasH)

	if math.Abs(scale-1) > zoomStateBand {
		e.state = StateZooming
	} else {
		e.state = StatePanning
	}
}

// panFingerLocked drives a single-finger pan under the pan tool. Nothing
// moves until cumulative logical displacement exceeds the touch slop.
func (e *Engine) panFingerLocked(raw, lp geom.Pt) {
	if e.state != StatePanning {
		e.slop += geom.Dist(e.lastLogic, lp)
		if e.slop < panSlop {
			return
		}
		e.state = StatePanning
		return
	}
	dx := raw.X - e.lastRaw.X
	dy := raw.Y - e.lastRaw.Y
	e.tf.PanX = geom.ClampPan(e.tf.PanX+dx, e.viewW, e.canvasW*e.tf.Zoom)
	e.tf.PanY = geom.ClampPan(e.tf.PanY+dy, e.viewH, e.canvasH*e.tf.Zoom)
}

// centroidSpan reduces the active pointer set to its centroid and spread.
// For the usual two-finger case the span is the finger distance.
func centroidSpan(pointers map[int]geom.Pt) (geom.Pt, float64) {
	var c geom.Pt
	for _, p := range pointers {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pointers))
	c.X /= n
	c.Y /= n
	var spread float64
	for _, p := range pointers {
		spread += geom.Dist(c, p)
	}
	return c, 2 * spread / n
}

// ZoomBy multiplies the current zoom, anchored at the viewport center, and
// animates toward the clamped result. Hosts pass ZoomStepFactor or its
// reciprocal for step buttons.
func (e *Engine) ZoomBy(mult float64) {
	if mult <= 0 || math.IsInf(mult, 0) || math.IsNaN(mult) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	zoom := geom.ClampZoom(e.tf.Zoom * mult)
	factor := zoom / e.tf.Zoom
	cx, cy := e.viewW/2, e.viewH/2
	target := geom.ClampTransform(geom.Transform{
		PanX: cx - (cx-e.tf.PanX)*factor,
		PanY: cy - (cy-e.tf.PanY)*factor,
		Zoom: zoom,
	}, e.viewW, e.viewH, e.canvasW, e.canvasH)
	e.animateToLocked(target)
}

// ResetView animates back to zoom 1 with the canvas centered in the
// viewport. Bound to double-tap and the reset button.
func (e *Engine) ResetView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.animateToLocked(geom.CenteredTransform(e.viewW, e.viewH, e.canvasW, e.canvasH))
}

// animateToLocked drives the transform toward target with an ease-out curve
// over a fixed duration. A new animation, a touch down, or Close invalidates
// the epoch and orphans any scheduled step.
func (e *Engine) animateToLocked(target geom.Transform) {
	e.animEpoch++
	if e.closed || e.tf == target {
		return
	}
	epoch := e.animEpoch
	from := e.tf
	begin := time.Now()

	var step func()
	step = func() {
		e.mu.Lock()
		if e.closed || e.animEpoch != epoch {
			e.mu.Unlock()
			return
		}
		t := float64(time.Since(begin)) / float64(viewAnimDuration)
		if t >= 1 {
			e.tf = target
			e.mu.Unlock()
			return
		}
		k := easeOutCubic(t)
		e.tf = geom.ClampTransform(geom.Transform{
			PanX: from.PanX + (target.PanX-from.PanX)*k,
			PanY: from.PanY + (target.PanY-from.PanY)*k,
			Zoom: from.Zoom + (target.Zoom-from.Zoom)*k,
		}, e.viewW, e.viewH, e.canvasW, e.canvasH)
		e.mu.Unlock()
		time.AfterFunc(viewAnimStep, step)
	}
	time.AfterFunc(viewAnimStep, step)
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}
