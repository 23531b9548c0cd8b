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

import (
	"math"
	"testing"
)

func TestNormalized(t *testing.T) {
	r := Normalized(Pt{10, 20}, Pt{4, 2})
	if r.X != 4 || r.Y != 2 || r.W != 6 || r.H != 18 {
		t.Fatalf("Normalized = %#v", r)
	}
}

func TestDist(t *testing.T) {
	if d := Dist(Pt{0, 0}, Pt{3, 4}); d != 5 {
		t.Fatalf("Dist = %v, want 5", d)
	}
}

func TestFinite(t *testing.T) {
	cases := []struct {
		p  Pt
		ok bool
	}{
		{Pt{1, 2}, true},
		{Pt{math.NaN(), 0}, false},
		{Pt{0, math.Inf(1)}, false},
		{Pt{math.Inf(-1), math.NaN()}, false},
	}
	for _, c := range cases {
		if got := c.p.Finite(); got != c.ok {
			t.Fatalf("Finite(%v) = %v, want %v", c.p, got, c.ok)
		}
	}
}

func TestRectContains(t *testing.T) {
	r := R(0, 0, 10, 10)
	if !r.Contains(Pt{5, 5}) || r.Contains(Pt{11, 5}) {
		t.Fatalf("Contains wrong for %#v", r)
	}
}
