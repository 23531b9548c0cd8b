/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package sketch implements the touch-driven drawing engine: touch sample
// classification, the gesture state machine with its pan/zoom transform,
// stroke/shape/text building, per-object undo history, and the dual-rate
// snapshot mechanism that keeps live feedback immediate while bounding how
// often the host-facing snapshot updates. The engine performs no I/O; the
// host wires persistence and submission through the snapshot callbacks.
package sketch

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"examsketch/internal/geom"
)

// Default canvas extent in logical pixels when the config leaves it zero.
const (
	DefaultCanvasWidth  = 1536
	DefaultCanvasHeight = 2048
)

// DefaultFontSize is applied to committed text annotations.
const DefaultFontSize = 16

// Config parameterizes a new Engine. Zero values fall back to sensible
// defaults; callbacks may be nil.
type Config struct {
	InitialLines           []Line
	InitialTextAnnotations []TextAnnotation
	InitialTool            Tool
	InitialColor           string
	InitialThickness       float64
	ColorPalette           []string
	ThicknessOptions       []float64
	CanvasWidth            float64
	CanvasHeight           float64
	ViewportWidth          float64
	ViewportHeight         float64

	// OnChange receives coalesced snapshots (at most ~60/s). OnExit receives
	// the final snapshot exactly once, from Close. OnTextPrompt is invoked
	// after a text drafting gesture ends; the host answers by calling
	// SubmitTextDraft or CancelTextDraft.
	OnChange     func(Snapshot)
	OnExit       func(Snapshot)
	OnTextPrompt func(Bounds)

	// CommitInterval overrides the commit-tier flush interval. Zero keeps
	// the default of one display frame.
	CommitInterval time.Duration
}

// Engine is the drawing engine. All mutation happens under one mutex on the
// interaction path; the application context only ever sees deep copies
// delivered through the commit tier.
type Engine struct {
	mu sync.Mutex

	history          *History
	tool             Tool
	color            string
	thickness        float64
	colorPalette     []string
	thicknessOptions []float64
	canvasW, canvasH float64
	viewW, viewH     float64
	tf               geom.Transform

	// Gesture episode state. gestureTool, gestureColor and gestureThickness
	// are the single authoritative attributes for the in-flight episode,
	// captured at first touch down.
	state            State
	gestureTool      Tool
	gestureColor     string
	gestureThickness float64
	multiTouch       bool
	pointers         map[int]geom.Pt

	// Tap pairing for the double-tap view reset.
	tapStart  geom.Pt
	tapMoved  bool
	lastTapAt time.Time
	lastTapPt geom.Pt
	lastTapID string

	// Single-finger pan slop accumulation, in logical px.
	slop      float64
	lastLogic geom.Pt
	lastRaw   geom.Pt

	// Two-finger gesture baseline.
	startCentroid geom.Pt
	startSpan     float64
	startTF       geom.Transform

	// Drafts.
	active               *Line
	shapeStart, shapeCur geom.Pt
	textStart, textCur   geom.Pt
	pendingText          *Bounds

	// Smoothed committed paths, keyed by line id. Entries survive undo so
	// redo does not recompute.
	paths map[string]geom.Path

	animEpoch uint64

	out          *coalescer
	onExit       func(Snapshot)
	onTextPrompt func(Bounds)
	closed       bool
}

// New builds an Engine from cfg. Initial objects become the pre-existing
// committed history (they are not undoable as a group, but individually).
func New(cfg Config) *Engine {
	e := &Engine{
		tool:             cfg.InitialTool,
		color:            cfg.InitialColor,
		thickness:        cfg.InitialThickness,
		colorPalette:     append([]string(nil), cfg.ColorPalette...),
		thicknessOptions: append([]float64(nil), cfg.ThicknessOptions...),
		canvasW:          cfg.CanvasWidth,
		canvasH:          cfg.CanvasHeight,
		viewW:            cfg.ViewportWidth,
		viewH:            cfg.ViewportHeight,
		pointers:         make(map[int]geom.Pt),
		paths:            make(map[string]geom.Path),
		onExit:           cfg.OnExit,
		onTextPrompt:     cfg.OnTextPrompt,
	}
	if e.tool == "" {
		e.tool = ToolPencil
	}
	if e.color == "" {
		e.color = "#1a1a1a"
	}
	if e.thickness <= 0 {
		e.thickness = 3
	}
	if e.canvasW <= 0 {
		e.canvasW = DefaultCanvasWidth
	}
	if e.canvasH <= 0 {
		e.canvasH = DefaultCanvasHeight
	}
	if e.viewW <= 0 {
		e.viewW = e.canvasW
	}
	if e.viewH <= 0 {
		e.viewH = e.canvasH
	}

	var initial []Object
	for _, l := range cfg.InitialLines {
		c := l.clone()
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		e.paths[c.ID] = pathForLine(c)
		initial = append(initial, c)
	}
	for _, t := range cfg.InitialTextAnnotations {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		initial = append(initial, t)
	}
	e.history = NewHistory(initial...)

	e.tf = geom.CenteredTransform(e.viewW, e.viewH, e.canvasW, e.canvasH)
	e.out = newCoalescer(cfg.CommitInterval, cfg.OnChange)
	return e
}

// SetViewport informs the engine of the host viewport size in screen px and
// re-clamps the transform against it.
func (e *Engine) SetViewport(w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	e.viewW, e.viewH = w, h
	e.tf = geom.ClampTransform(e.tf, e.viewW, e.viewH, e.canvasW, e.canvasH)
}

// SetTool selects the tool for future gestures. Switching to the pan tool
// discards any in-flight draft; other switches leave the current gesture
// under its captured tool.
func (e *Engine) SetTool(t Tool) {
	e.mu.Lock()
	if t == ToolPan {
		e.cancelDraftLocked()
	}
	e.tool = t
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) SetColor(c string) {
	e.mu.Lock()
	e.color = c
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) SetThickness(v float64) {
	if v <= 0 {
		return
	}
	e.mu.Lock()
	e.thickness = v
	e.mu.Unlock()
	e.publish()
}

// Undo removes the most recent committed object. Returns false when there is
// nothing to undo.
func (e *Engine) Undo() bool {
	ok := e.history.Undo()
	if ok {
		e.publish()
	}
	return ok
}

// Redo restores the most recently undone object.
func (e *Engine) Redo() bool {
	ok := e.history.Redo()
	if ok {
		e.publish()
	}
	return ok
}

// Clear discards all committed objects and both history stacks.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.cancelDraftLocked()
	e.paths = make(map[string]geom.Path)
	e.mu.Unlock()
	e.history.Clear()
	e.publish()
}

// Tool returns the currently selected tool (not the in-flight gesture's).
func (e *Engine) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

func (e *Engine) Color() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.color
}

func (e *Engine) Thickness() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thickness
}

// CanvasSize returns the logical canvas extent.
func (e *Engine) CanvasSize() (w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvasW, e.canvasH
}

// Transform returns the current pan/zoom transform.
func (e *Engine) Transform() geom.Transform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tf
}

// State returns the gesture state machine position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Palette returns the configured color palette and thickness options.
func (e *Engine) Palette() (colors []string, thicknesses []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.colorPalette...), append([]float64(nil), e.thicknessOptions...)
}

// Objects returns a copy of the committed object list in commit order.
func (e *Engine) Objects() []Object { return e.history.Objects() }

// Path returns the committed smoothed path for a line id.
func (e *Engine) Path(id string) (geom.Path, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.paths[id]
	return p, ok
}

// Snapshot builds an independent deep copy of the committed state. This is
// the same value the commit tier delivers, computed synchronously.
func (e *Engine) Snapshot() Snapshot {
	objs := e.history.Objects()
	e.mu.Lock()
	s := Snapshot{
		Lines:           []Line{},
		TextAnnotations: []TextAnnotation{},
		Tool:            e.tool,
		Color:           e.color,
		Thickness:       e.thickness,
		CanvasWidth:     e.canvasW,
		CanvasHeight:    e.canvasH,
	}
	e.mu.Unlock()
	for _, o := range objs {
		switch v := o.(type) {
		case Line:
			s.Lines = append(s.Lines, v.clone())
		case TextAnnotation:
			s.TextAnnotations = append(s.TextAnnotations, v)
		}
	}
	return s
}

// publish hands the current snapshot to the commit tier.
func (e *Engine) publish() {
	e.out.publish(e.Snapshot())
}

// SubmitTextDraft commits the pending text box with the given content. The
// rect is normalized to its min corner with a minimum size of 100x40.
// Empty or whitespace-only content discards the draft.
func (e *Engine) SubmitTextDraft(text string) {
	e.mu.Lock()
	b := e.pendingText
	e.pendingText = nil
	if b == nil || strings.TrimSpace(text) == "" {
		e.mu.Unlock()
		return
	}
	r := b.Rect()
	if r.W < 100 {
		r.W = 100
	}
	if r.H < 40 {
		r.H = 40
	}
	ta := TextAnnotation{
		ID:       uuid.NewString(),
		X:        r.X,
		Y:        r.Y,
		Width:    r.W,
		Height:   r.H,
		Text:     text,
		FontSize: DefaultFontSize,
		Color:    e.gestureColor,
	}
	e.mu.Unlock()
	e.history.Commit(ta)
	e.publish()
}

// CancelTextDraft discards the pending text box without committing.
func (e *Engine) CancelTextDraft() {
	e.mu.Lock()
	e.pendingText = nil
	e.mu.Unlock()
}

// Close tears the engine down: pending commit-tier deliveries are dropped
// and onExit receives the final snapshot exactly once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.animEpoch++
	e.cancelDraftLocked()
	exit := e.onExit
	e.mu.Unlock()

	e.out.close()
	if exit != nil {
		exit(e.Snapshot())
	}
}

// pathForLine builds the render path for a committed line. Shape lines have
// no point trail and are rendered from bounds by the consumer.
func pathForLine(l Line) geom.Path {
	if l.ShapeKind != "" && l.Bounds != nil {
		return geom.Path{}
	}
	return geom.Smooth(l.Points)
}
