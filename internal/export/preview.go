/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export rasterizes answer snapshots into PNG previews. Strokes are
// drawn from their committed smoothed paths; shapes from bounds; text boxes
// with a bitmap face. Output is raster only.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"examsketch/internal/geom"
	"examsketch/internal/sketch"
)

// flattenSteps subdivides each quad segment of a smoothed path.
const flattenSteps = 16

// PreviewOptions controls snapshot rasterization.
// Scale is pixels per logical canvas unit; <= 0 selects 1.
// A zero Background renders white.
type PreviewOptions struct {
	Scale      float64
	Background color.RGBA
}

// RenderSnapshot rasterizes a snapshot into an RGBA image the size of the
// scaled canvas. Eraser strokes are painted in the background color at twice
// their width, matching on-screen semantics.
func RenderSnapshot(s sketch.Snapshot, opt PreviewOptions) *image.RGBA {
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	bg := opt.Background
	if bg.A == 0 {
		bg = color.RGBA{255, 255, 255, 255}
	}
	w := int(math.Round(s.CanvasWidth * scale))
	h := int(math.Round(s.CanvasHeight * scale))
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	for _, l := range s.Lines {
		col := ParseHexColor(l.Color)
		width := l.Thickness * scale
		if l.Tool == sketch.ToolEraser {
			col = bg
			width *= 2
		}
		switch {
		case l.ShapeKind != "" && l.Bounds != nil:
			StrokeShape(img, l.ShapeKind, l.Bounds.Rect(), scale, width, col)
		default:
			pts := geom.Flatten(geom.Smooth(l.Points), flattenSteps)
			StrokePolyline(img, pts, scale, width, col)
		}
	}
	for _, t := range s.TextAnnotations {
		drawTextBox(img, t, scale)
	}
	return img
}

// WriteSnapshotPNG renders the snapshot and writes it to path as PNG.
func WriteSnapshotPNG(path string, s sketch.Snapshot, opt PreviewOptions) error {
	img := RenderSnapshot(s, opt)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// Thumbnail downscales src to fit within maxW x maxH, preserving aspect
// ratio, using Catmull-Rom resampling.
func Thumbnail(src image.Image, maxW, maxH int) *image.RGBA {
	sb := src.Bounds()
	if maxW <= 0 {
		maxW = 256
	}
	if maxH <= 0 {
		maxH = 256
	}
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	k := math.Min(float64(maxW)/sw, float64(maxH)/sh)
	if k > 1 {
		k = 1
	}
	w := int(math.Max(1, math.Round(sw*k)))
	h := int(math.Max(1, math.Round(sh*k)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Over, nil)
	return dst
}

// StrokeShape outlines a bounds-defined shape (line, rectangle, ellipse).
func StrokeShape(img *image.RGBA, kind sketch.ShapeKind, r geom.Rect, scale, width float64, col color.RGBA) {
	a := geom.Pt{X: r.X, Y: r.Y}
	b := geom.Pt{X: r.X + r.W, Y: r.Y + r.H}
	switch kind {
	case sketch.ShapeRectangle:
		StrokePolyline(img, []geom.Pt{
			a, {X: b.X, Y: a.Y}, b, {X: a.X, Y: b.Y}, a,
		}, scale, width, col)
	case sketch.ShapeEllipse:
		cx, cy := r.X+r.W/2, r.Y+r.H/2
		rx, ry := r.W/2, r.H/2
		const segs = 64
		pts := make([]geom.Pt, 0, segs+1)
		for i := 0; i <= segs; i++ {
			t := 2 * math.Pi * float64(i) / segs
			pts = append(pts, geom.Pt{X: cx + rx*math.Cos(t), Y: cy + ry*math.Sin(t)})
		}
		StrokePolyline(img, pts, scale, width, col)
	default:
		StrokePolyline(img, []geom.Pt{a, b}, scale, width, col)
	}
}

// StrokePolyline stamps discs along each segment; adequate for previews.
func StrokePolyline(img *image.RGBA, pts []geom.Pt, scale, width float64, col color.RGBA) {
	if len(pts) == 0 {
		return
	}
	radius := math.Max(width/2, 0.5)
	if len(pts) == 1 {
		stampDisc(img, pts[0].X*scale, pts[0].Y*scale, radius, col)
		return
	}
	for i := 1; i < len(pts); i++ {
		drawSegment(img, pts[i-1].X*scale, pts[i-1].Y*scale, pts[i].X*scale, pts[i].Y*scale, radius, col)
	}
}

func drawSegment(img *image.RGBA, x0, y0, x1, y1, radius float64, col color.RGBA) {
	dx, dy := x1-x0, y1-y0
	dist := math.Hypot(dx, dy)
	step := math.Max(radius/2, 0.5)
	n := int(dist/step) + 1
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		stampDisc(img, x0+dx*t, y0+dy*t, radius, col)
	}
}

func stampDisc(img *image.RGBA, cx, cy, radius float64, col color.RGBA) {
	x0 := int(math.Floor(cx - radius))
	x1 := int(math.Ceil(cx + radius))
	y0 := int(math.Floor(cy - radius))
	y1 := int(math.Ceil(cy + radius))
	r2 := radius * radius
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			fx, fy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if fx*fx+fy*fy <= r2 {
				img.SetRGBA(x, y, col)
			}
		}
	}
}

func drawTextBox(img *image.RGBA, t sketch.TextAnnotation, scale float64) {
	col := ParseHexColor(t.Color)
	x0 := int(math.Round(t.X * scale))
	y0 := int(math.Round(t.Y * scale))
	x1 := int(math.Round((t.X + t.Width) * scale))
	y1 := int(math.Round((t.Y + t.Height) * scale))

	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
	}
	lineH := face.Height + 2
	maxCols := (x1 - x0 - 8) / face.Advance
	if maxCols < 1 {
		maxCols = 1
	}
	y := y0 + face.Ascent + 4
	for _, line := range WrapText(t.Text, maxCols) {
		if y > y1-2 {
			break
		}
		d.Dot = fixed.P(x0+4, y)
		d.DrawString(line)
		y += lineH
	}
}

// WrapText breaks text into lines of at most cols characters, preferring
// word boundaries.
func WrapText(s string, cols int) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			switch {
			case line == "":
				line = w
			case len(line)+1+len(w) <= cols:
				line += " " + w
			default:
				out = append(out, line)
				line = w
			}
			for len(line) > cols {
				out = append(out, line[:cols])
				line = line[cols:]
			}
		}
		out = append(out, line)
	}
	return out
}

// ParseHexColor parses #rgb or #rrggbb, falling back to near-black.
func ParseHexColor(s string) color.RGBA {
	fallback := color.RGBA{26, 26, 26, 255}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	hex := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	switch len(s) {
	case 3:
		var v [3]uint8
		for i := 0; i < 3; i++ {
			n, ok := hex(s[i])
			if !ok {
				return fallback
			}
			v[i] = n*16 + n
		}
		return color.RGBA{v[0], v[1], v[2], 255}
	case 6:
		var v [3]uint8
		for i := 0; i < 3; i++ {
			hi, ok1 := hex(s[2*i])
			lo, ok2 := hex(s[2*i+1])
			if !ok1 || !ok2 {
				return fallback
			}
			v[i] = hi*16 + lo
		}
		return color.RGBA{v[0], v[1], v[2], 255}
	}
	return fallback
}
