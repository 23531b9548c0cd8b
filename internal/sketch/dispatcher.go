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
	"time"

	"examsketch/internal/geom"
)

// panSlop is the cumulative logical displacement a single finger must cover
// before the pan tool moves the canvas.
const panSlop = 5.0

// A tap is an episode whose pointer never strays more than tapSlop screen px
// from its start. Two taps ending within doubleTapInterval and doubleTapSpan
// of each other form a double tap, which resets the view instead of leaving
// marks.
const (
	tapSlop           = 5.0
	doubleTapInterval = 300 * time.Millisecond
	doubleTapSpan     = 30.0
)

// HandleTouch feeds one raw touch sample, in screen coordinates, into the
// engine. It is the single entry point of the interaction context and never
// blocks: all work is bookkeeping under the engine mutex.
func (e *Engine) HandleTouch(s Sample) {
	p := geom.Pt{X: s.X, Y: s.Y}
	if !p.Finite() {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	var prompt *Bounds
	switch s.Phase {
	case PhaseStart:
		e.pointerDownLocked(s.Pointer, p, s.Fingers)
	case PhaseMove:
		e.pointerMoveLocked(s.Pointer, p, s.Fingers)
	case PhaseEnd:
		prompt = e.pointerUpLocked(s.Pointer, p, s.Fingers)
	case PhaseCancel:
		e.pointerCancelLocked(s.Pointer)
	}
	ask := e.onTextPrompt
	e.mu.Unlock()

	if prompt != nil && ask != nil {
		ask(*prompt)
	}
	if prompt == nil && s.Phase == PhaseEnd {
		// A finished stroke or shape may have committed.
		e.maybePublishAfterEnd()
	}
}

func (e *Engine) pointerDownLocked(id int, p geom.Pt, fingers int) {
	first := len(e.pointers) == 0
	e.pointers[id] = p

	if first {
		// New gesture episode: capture tool, color and thickness once and
		// stop any running view animation.
		e.animEpoch++
		e.gestureTool = e.tool
		e.gestureColor = e.color
		e.gestureThickness = e.thickness
		e.multiTouch = false
		e.slop = 0
		e.lastRaw = p
		e.lastLogic = e.tf.Invert(p)
		e.tapStart = p
		e.tapMoved = false
	}

	if len(e.pointers) >= 2 || fingers >= 2 {
		e.enterMultiTouchLocked()
		return
	}
	if e.multiTouch {
		return
	}

	lp := e.lastLogic
	switch {
	case e.gestureTool == ToolPan:
		// Stay Idle until slop is exceeded.
	case e.gestureTool.Freehand():
		e.beginStrokeLocked(lp)
	case e.gestureTool.Shape():
		e.beginShapeLocked(lp)
	case e.gestureTool == ToolText:
		e.beginTextLocked(lp)
	}
}

func (e *Engine) pointerMoveLocked(id int, p geom.Pt, fingers int) {
	if _, ok := e.pointers[id]; !ok {
		// Stale pointer from a cancelled or unknown episode.
		return
	}
	e.pointers[id] = p
	if !e.tapMoved && geom.Dist(p, e.tapStart) > tapSlop {
		e.tapMoved = true
	}

	// Some drivers coalesce the second finger's down into a move sample, so
	// the finger count gates here as well.
	if fingers >= 2 && !e.multiTouch {
		e.enterMultiTouchLocked()
	}
	if e.multiTouch {
		e.updateMultiTouchLocked()
		return
	}

	lp := e.tf.Invert(p)
	switch {
	case e.gestureTool == ToolPan:
		e.panFingerLocked(p, lp)
	case e.gestureTool.Freehand():
		e.extendStrokeLocked(lp)
	case e.gestureTool.Shape():
		e.shapeCur = lp
	case e.gestureTool == ToolText:
		e.textCur = lp
	}
	e.lastRaw = p
	e.lastLogic = lp
}

// pointerUpLocked finalizes the episode once the last finger lifts. It
// returns the text drafting rect when the host should open its text modal.
func (e *Engine) pointerUpLocked(id int, p geom.Pt, fingers int) *Bounds {
	if _, ok := e.pointers[id]; !ok {
		return nil
	}
	e.pointers[id] = p
	if !e.multiTouch {
		e.pointerMoveLocked(id, p, fingers)
	}
	delete(e.pointers, id)
	if len(e.pointers) > 0 {
		// Fingers lift asynchronously; the episode and the multi-touch
		// latch persist until all are up.
		e.rebaselineMultiTouchLocked()
		return nil
	}
	return e.finishEpisodeLocked()
}

func (e *Engine) pointerCancelLocked(id int) {
	if _, ok := e.pointers[id]; !ok {
		return
	}
	delete(e.pointers, id)
	if len(e.pointers) > 0 {
		return
	}
	e.cancelDraftLocked()
	e.lastTapAt = time.Time{}
	e.state = StateIdle
}

// finishEpisodeLocked commits or discards the in-flight draft at episode end.
func (e *Engine) finishEpisodeLocked() *Bounds {
	defer func() {
		e.state = StateIdle
		e.multiTouch = false
	}()

	if e.multiTouch {
		e.lastTapAt = time.Time{}
		return nil
	}
	if !e.tapMoved && e.consumeDoubleTapLocked() {
		return nil
	}

	marked := ""
	var prompt *Bounds
	switch {
	case e.gestureTool.Freehand():
		marked = e.commitStrokeLocked()
	case e.gestureTool.Shape():
		marked = e.commitShapeLocked()
	case e.gestureTool == ToolText:
		prompt = e.finishTextDraftLocked()
	}

	if e.tapMoved {
		e.lastTapAt = time.Time{}
	} else {
		// First tap of a potential pair: remember it so an immediate
		// follow-up can revoke its mark.
		e.lastTapAt = time.Now()
		e.lastTapPt = e.tapStart
		e.lastTapID = marked
	}
	return prompt
}

// consumeDoubleTapLocked pairs the ending tap with the previous one. A pair
// discards the current draft, revokes the first tap's mark, and animates the
// view back to zoom 1 with the canvas centered.
func (e *Engine) consumeDoubleTapLocked() bool {
	if e.lastTapAt.IsZero() ||
		time.Since(e.lastTapAt) > doubleTapInterval ||
		geom.Dist(e.tapStart, e.lastTapPt) > doubleTapSpan {
		return false
	}
	e.cancelDraftLocked()
	if e.lastTapID != "" && e.history.DropLast(e.lastTapID) {
		delete(e.paths, e.lastTapID)
	}
	e.lastTapAt = time.Time{}
	e.animateToLocked(geom.CenteredTransform(e.viewW, e.viewH, e.canvasW, e.canvasH))
	return true
}

// maybePublishAfterEnd pushes a snapshot after an episode that may have
// committed. Harmless when nothing changed: the commit tier coalesces.
func (e *Engine) maybePublishAfterEnd() {
	e.mu.Lock()
	idle := e.state == StateIdle && len(e.pointers) == 0
	e.mu.Unlock()
	if idle {
		e.publish()
	}
}
