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

// Viewport transform for pan/zoom navigation. Screen and logical spaces are
// related by screen = logical*Zoom + Pan, per axis.

// Zoom bounds for the canvas transform.
const (
	MinZoom = 0.4
	MaxZoom = 8.0
)

// Transform is the live pan/zoom state of the viewport.
type Transform struct {
	PanX float64
	PanY float64
	Zoom float64
}

// IdentityTransform is the untransformed view.
var IdentityTransform = Transform{Zoom: 1}

// Apply maps a logical point to screen coordinates.
func (t Transform) Apply(p Pt) Pt {
	return Pt{X: p.X*t.Zoom + t.PanX, Y: p.Y*t.Zoom + t.PanY}
}

// Invert maps a screen point back to logical canvas coordinates.
func (t Transform) Invert(p Pt) Pt {
	z := t.Zoom
	if z == 0 {
		z = 1
	}
	return Pt{X: (p.X - t.PanX) / z, Y: (p.Y - t.PanY) / z}
}

// ClampZoom limits a zoom factor to the permitted range.
func ClampZoom(z float64) float64 { return Clamp(z, MinZoom, MaxZoom) }

// ClampPan clamps a pan offset along one axis. extra is the unused viewport
// space: viewport minus scaled content. When content fits (extra >= 0) the
// pan may wander within one viewport extent in either direction; when content
// overflows, the pan is held in [extra, 0] so no empty margin is ever shown.
func ClampPan(pan, viewport, scaledContent float64) float64 {
	extra := viewport - scaledContent
	if extra >= 0 {
		return Clamp(pan, -viewport, viewport)
	}
	return Clamp(pan, extra, 0)
}

// ClampTransform applies zoom bounds and re-clamps both pan axes against the
// viewport and the scaled logical content size.
func ClampTransform(t Transform, viewportW, viewportH, contentW, contentH float64) Transform {
	t.Zoom = ClampZoom(t.Zoom)
	t.PanX = ClampPan(t.PanX, viewportW, contentW*t.Zoom)
	t.PanY = ClampPan(t.PanY, viewportH, contentH*t.Zoom)
	return t
}

// CenteredPan returns the pan that centers the content along one axis at the
// given zoom. For overflowing content this sits midway through the clamp
// range, so it is always a valid pan.
func CenteredPan(viewport, scaledContent float64) float64 {
	return (viewport - scaledContent) / 2
}

// CenteredTransform is the reset-view target: zoom 1, content centered.
func CenteredTransform(viewportW, viewportH, contentW, contentH float64) Transform {
	return Transform{
		PanX: CenteredPan(viewportW, contentW),
		PanY: CenteredPan(viewportH, contentH),
		Zoom: 1,
	}
}
