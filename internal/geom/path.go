/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package geom

// Path commands for stroke rendering.

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo // quadratic bezier (cx, cy, x, y)
)

type PathCmd struct {
	Op   PathOp
	Data [4]float64 // enough for quad; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [4]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [4]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [4]float64{cx, cy, x, y}})
}

// End returns the current endpoint of the path.
func (p *Path) End() (Pt, bool) {
	if len(p.Cmds) == 0 {
		return Pt{}, false
	}
	c := p.Cmds[len(p.Cmds)-1]
	switch c.Op {
	case QuadTo:
		return Pt{c.Data[2], c.Data[3]}, true
	default:
		return Pt{c.Data[0], c.Data[1]}, true
	}
}

// Smooth builds the committed stroke path from the full point list: quad
// curves toward successive midpoints with the interior point as control. A
// single point yields a bare MoveTo (rendered as a dot); two points yield a
// straight segment.
func Smooth(points []Pt) Path {
	var p Path
	n := len(points)
	if n == 0 {
		return p
	}
	p.MoveTo(points[0].X, points[0].Y)
	if n == 1 {
		return p
	}
	if n == 2 {
		p.LineTo(points[1].X, points[1].Y)
		return p
	}
	for i := 1; i < n-1; i++ {
		m := Mid(points[i], points[i+1])
		p.QuadTo(points[i].X, points[i].Y, m.X, m.Y)
	}
	p.QuadTo(points[n-2].X, points[n-2].Y, points[n-1].X, points[n-1].Y)
	return p
}

// Polyline builds a cheap straight-segment path, used for the live preview
// over the sliding point window.
func Polyline(points []Pt) Path {
	var p Path
	if len(points) == 0 {
		return p
	}
	p.MoveTo(points[0].X, points[0].Y)
	for _, pt := range points[1:] {
		p.LineTo(pt.X, pt.Y)
	}
	return p
}

// Flatten converts a path into a polyline, subdividing each quad curve into
// steps segments. Used by the raster exporter.
func Flatten(p Path, steps int) []Pt {
	if steps < 1 {
		steps = 8
	}
	var out []Pt
	var cur Pt
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			cur = Pt{c.Data[0], c.Data[1]}
			out = append(out, cur)
		case QuadTo:
			ctrl := Pt{c.Data[0], c.Data[1]}
			end := Pt{c.Data[2], c.Data[3]}
			for i := 1; i <= steps; i++ {
				t := float64(i) / float64(steps)
				u := 1 - t
				out = append(out, Pt{
					X: u*u*cur.X + 2*u*t*ctrl.X + t*t*end.X,
					Y: u*u*cur.Y + 2*u*t*ctrl.Y + t*t*end.Y,
				})
			}
			cur = end
		}
	}
	return out
}

// Bounds returns an axis-aligned bounding box approximation using control
// points. Sufficient for viewport culling.
func (p *Path) Bounds() Rect {
	minX, minY := maxCoord, maxCoord
	maxX, maxY := -maxCoord, -maxCoord
	grow := func(x, y float64) {
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			grow(c.Data[0], c.Data[1])
		case QuadTo:
			grow(c.Data[0], c.Data[1])
			grow(c.Data[2], c.Data[3])
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

const maxCoord = 1e18
