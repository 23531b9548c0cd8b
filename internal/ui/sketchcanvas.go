//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"image/draw"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"examsketch/internal/export"
	"examsketch/internal/geom"
	"examsketch/internal/sketch"
)

var (
	canvasBackground = color.RGBA{255, 255, 255, 255}
	surroundColor    = color.RGBA{226, 228, 232, 255}
	draftAccentColor = color.RGBA{30, 102, 200, 255}
)

// SketchCanvas is the drawing surface widget. It forwards pointer events to
// the engine and rasterizes the engine state (committed objects, live
// preview, drafts) through the viewport transform.
type SketchCanvas struct {
	widget.BaseWidget
	engine *sketch.Engine
}

func NewSketchCanvas(e *sketch.Engine) *SketchCanvas {
	sc := &SketchCanvas{engine: e}
	sc.ExtendBaseWidget(sc)
	return sc
}

func (sc *SketchCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &sketchCanvasRenderer{sc: sc}
	r.raster = canvas.NewRaster(r.draw)
	return r
}

func (sc *SketchCanvas) Resize(size fyne.Size) {
	sc.BaseWidget.Resize(size)
	sc.engine.SetViewport(float64(size.Width), float64(size.Height))
}

func (sc *SketchCanvas) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

func (sc *SketchCanvas) sample(phase sketch.Phase, pos fyne.Position) sketch.Sample {
	return sketch.Sample{
		Pointer: 0,
		X:       float64(pos.X),
		Y:       float64(pos.Y),
		Phase:   phase,
		Fingers: 1,
	}
}

// MouseDown and MouseUp bracket a one-pointer episode. The desktop driver
// only ever reports a single pointer; pinch gestures stay touch-only.
func (sc *SketchCanvas) MouseDown(ev *desktop.MouseEvent) {
	sc.engine.HandleTouch(sc.sample(sketch.PhaseStart, ev.Position))
	sc.Refresh()
}

func (sc *SketchCanvas) MouseUp(ev *desktop.MouseEvent) {
	sc.engine.HandleTouch(sc.sample(sketch.PhaseEnd, ev.Position))
	sc.Refresh()
}

func (sc *SketchCanvas) Dragged(ev *fyne.DragEvent) {
	sc.engine.HandleTouch(sc.sample(sketch.PhaseMove, ev.Position))
	sc.Refresh()
}

func (sc *SketchCanvas) DragEnd() {}

// Scrolled maps the wheel to stepwise zoom around the viewport center.
func (sc *SketchCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		sc.engine.ZoomBy(sketch.ZoomStepFactor)
	} else if ev.Scrolled.DY < 0 {
		sc.engine.ZoomBy(1 / sketch.ZoomStepFactor)
	}
	sc.Refresh()
}

type sketchCanvasRenderer struct {
	sc     *SketchCanvas
	raster *canvas.Raster
}

func (r *sketchCanvasRenderer) Layout(size fyne.Size) { r.raster.Resize(size) }
func (r *sketchCanvasRenderer) MinSize() fyne.Size    { return r.sc.MinSize() }
func (r *sketchCanvasRenderer) Refresh()              { r.raster.Refresh() }
func (r *sketchCanvasRenderer) Destroy()              {}
func (r *sketchCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.raster}
}

// draw produces the viewport image. w and h are device pixels; positions
// coming from the engine are logical units, so everything runs through a
// device-scale factor on top of the pan/zoom transform.
func (r *sketchCanvasRenderer) draw(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: surroundColor}, image.Point{}, draw.Src)
	if w == 0 || h == 0 {
		return img
	}

	e := r.sc.engine
	tf := e.Transform()
	cw, ch := e.CanvasSize()
	logicalW := float64(r.sc.Size().Width)
	dev := 1.0
	if logicalW > 0 {
		dev = float64(w) / logicalW
	}
	// compose device scale into the transform so tf maps straight to pixels
	px := geom.Transform{PanX: tf.PanX * dev, PanY: tf.PanY * dev, Zoom: tf.Zoom * dev}

	// canvas sheet
	sheet := image.Rect(
		int(px.PanX), int(px.PanY),
		int(px.PanX+cw*px.Zoom), int(px.PanY+ch*px.Zoom),
	).Intersect(img.Bounds())
	draw.Draw(img, sheet, &image.Uniform{C: canvasBackground}, image.Point{}, draw.Src)

	snap := e.Snapshot()
	for _, l := range snap.Lines {
		col := export.ParseHexColor(l.Color)
		width := l.Thickness * px.Zoom
		if l.Tool == sketch.ToolEraser {
			col = canvasBackground
			width *= 2
		}
		if l.ShapeKind != "" && l.Bounds != nil {
			export.StrokeShape(img, l.ShapeKind, transformRect(l.Bounds.Rect(), px), 1, width, col)
			continue
		}
		if p, ok := e.Path(l.ID); ok {
			export.StrokePolyline(img, transformPts(geom.Flatten(p, 12), px), 1, width, col)
		}
	}
	for _, t := range snap.TextAnnotations {
		drawViewportText(img, t, px)
	}

	// live preview on top of committed content
	if p, ok := e.PreviewPath(); ok {
		width := e.Thickness() * px.Zoom
		col := export.ParseHexColor(e.Color())
		if e.Tool() == sketch.ToolEraser {
			col = canvasBackground
			width *= 2
		}
		export.StrokePolyline(img, transformPts(geom.Flatten(p, 12), px), 1, width, col)
	}
	if kind, b, ok := e.ShapeDraft(); ok {
		export.StrokeShape(img, kind, transformRect(b.Rect(), px), 1, e.Thickness()*px.Zoom, draftAccentColor)
	}
	if b, ok := e.TextDraft(); ok {
		export.StrokeShape(img, sketch.ShapeRectangle, transformRect(b.Rect(), px), 1, 1, draftAccentColor)
	}
	return img
}

func transformPts(pts []geom.Pt, tf geom.Transform) []geom.Pt {
	out := make([]geom.Pt, len(pts))
	for i, p := range pts {
		out[i] = tf.Apply(p)
	}
	return out
}

func transformRect(r geom.Rect, tf geom.Transform) geom.Rect {
	min := tf.Apply(geom.Pt{X: r.X, Y: r.Y})
	return geom.Rect{X: min.X, Y: min.Y, W: r.W * tf.Zoom, H: r.H * tf.Zoom}
}

func drawViewportText(img *image.RGBA, t sketch.TextAnnotation, tf geom.Transform) {
	r := transformRect(geom.Rect{X: t.X, Y: t.Y, W: t.Width, H: t.Height}, tf)
	col := export.ParseHexColor(t.Color)
	export.StrokeShape(img, sketch.ShapeRectangle, r, 1, 1, color.RGBA{200, 203, 208, 255})

	face := basicfont.Face7x13
	d := font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face}
	maxCols := (int(r.W) - 8) / face.Advance
	if maxCols < 1 {
		maxCols = 1
	}
	y := int(r.Y) + face.Ascent + 4
	bottom := int(r.Y + r.H)
	for _, line := range export.WrapText(t.Text, maxCols) {
		if y > bottom-2 {
			break
		}
		d.Dot = fixed.P(int(r.X)+4, y)
		d.DrawString(line)
		y += face.Height + 2
	}
}
