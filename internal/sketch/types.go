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

// Core data model of the drawing engine. These structs serialize to the
// answer snapshot JSON consumed by the persistence and submission layers.

import "examsketch/internal/geom"

// Tool identifies the active drawing tool.
type Tool string

const (
	ToolPencil  Tool = "pencil"
	ToolEraser  Tool = "eraser"
	ToolLine    Tool = "line"
	ToolRect    Tool = "rectangle"
	ToolEllipse Tool = "ellipse"
	ToolText    Tool = "text"
	ToolPan     Tool = "pan"
)

// ParseTool maps a config string to a Tool, defaulting to pencil.
func ParseTool(s string) Tool {
	switch Tool(s) {
	case ToolPencil, ToolEraser, ToolLine, ToolRect, ToolEllipse, ToolText, ToolPan:
		return Tool(s)
	}
	return ToolPencil
}

// Freehand reports whether the tool accumulates a point trail.
func (t Tool) Freehand() bool { return t == ToolPencil || t == ToolEraser }

// Shape reports whether the tool drafts a two-corner shape.
func (t Tool) Shape() bool { return t == ToolLine || t == ToolRect || t == ToolEllipse }

// ShapeKind tags a committed shape line.
type ShapeKind string

const (
	ShapeLine      ShapeKind = "line"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeEllipse   ShapeKind = "ellipse"
)

func shapeKindFor(t Tool) ShapeKind {
	switch t {
	case ToolRect:
		return ShapeRectangle
	case ToolEllipse:
		return ShapeEllipse
	default:
		return ShapeLine
	}
}

// Bounds are the two defining corners of a shape, in the order they were
// drawn (not normalized).
type Bounds struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Rect returns the normalized rectangle spanned by the bounds.
func (b Bounds) Rect() geom.Rect {
	return geom.Normalized(geom.Pt{X: b.X1, Y: b.Y1}, geom.Pt{X: b.X2, Y: b.Y2})
}

// Line is a committed stroke. Freehand lines carry the growing point list;
// shape lines carry only Bounds and a ShapeKind.
type Line struct {
	ID        string    `json:"id"`
	Tool      Tool      `json:"tool"`
	Color     string    `json:"color"`
	Thickness float64   `json:"thickness"`
	Points    []geom.Pt `json:"points,omitempty"`
	ShapeKind ShapeKind `json:"shapeKind,omitempty"`
	Bounds    *Bounds   `json:"bounds,omitempty"`
}

func (l Line) clone() Line {
	c := l
	if l.Points != nil {
		c.Points = append([]geom.Pt(nil), l.Points...)
	}
	if l.Bounds != nil {
		b := *l.Bounds
		c.Bounds = &b
	}
	return c
}

// TextAnnotation is a committed text box with a normalized rect.
type TextAnnotation struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
}

// Object is a committed drawing object: a Line or a TextAnnotation.
type Object interface{ isObject() }

func (Line) isObject()           {}
func (TextAnnotation) isObject() {}

// Snapshot is the externally observable projection of engine state. It is
// always an independent copy, never an alias of live engine data.
type Snapshot struct {
	Lines           []Line           `json:"lines"`
	TextAnnotations []TextAnnotation `json:"textAnnotations"`
	Tool            Tool             `json:"tool"`
	Color           string           `json:"color"`
	Thickness       float64          `json:"thickness"`
	CanvasWidth     float64          `json:"canvasWidth"`
	CanvasHeight    float64          `json:"canvasHeight"`
}

// Phase is the lifecycle stage of a touch sample.
type Phase uint8

const (
	PhaseStart Phase = iota
	PhaseMove
	PhaseEnd
	PhaseCancel
)

// Sample is one raw touch event in screen coordinates. Pointer distinguishes
// concurrent fingers; Fingers is the total count active on the surface.
type Sample struct {
	Pointer int
	X       float64
	Y       float64
	Phase   Phase
	Fingers int
}

// State is the gesture state machine position.
type State uint8

const (
	StateIdle State = iota
	StateDrawing
	StateShapeDraft
	StateTextDraft
	StatePanning
	StateZooming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateShapeDraft:
		return "shape-draft"
	case StateTextDraft:
		return "text-draft"
	case StatePanning:
		return "panning"
	case StateZooming:
		return "zooming"
	}
	return "unknown"
}
