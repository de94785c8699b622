// nightcam - on-camera meteor detection for low-power embedded imagers
//  Copyright (C) 2024, The Night Watch Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package detector

import "math"

// lineEndpoints intersects the parametric line x·cosθ + y·sinθ = rho
// with the four image borders and returns the first two intersections
// that fall inside the image. Fewer than two valid intersections yields
// all zeros, which the caller rejects on length. This runs once per
// peak, well off the per-frame hot path, so float math is fine here.
func lineEndpoints(rho, thetaDeg, width, height int) (x1, y1, x2, y2 int) {
	theta := float64(thetaDeg) * math.Pi / 180
	c := math.Cos(theta)
	s := math.Sin(theta)

	const eps = 1e-6

	// A term within eps of zero is treated as exactly zero, so that a
	// border the line runs parallel to also drops out of the other
	// intersection formulas (cos 90° is not exactly 0 in floating point).
	if math.Abs(c) <= eps {
		c = 0
	}
	if math.Abs(s) <= eps {
		s = 0
	}

	var xs, ys [4]int
	n := 0

	// Left edge x=0.
	if math.Abs(s) > eps {
		v := float64(rho) / s
		if v >= 0 && v < float64(height) {
			xs[n], ys[n] = 0, int(v)
			n++
		}
	}
	// Right edge x=width-1.
	if math.Abs(s) > eps && n < 4 {
		v := (float64(rho) - float64(width-1)*c) / s
		if v >= 0 && v < float64(height) {
			xs[n], ys[n] = width-1, int(v)
			n++
		}
	}
	// Top edge y=0.
	if math.Abs(c) > eps && n < 4 {
		v := float64(rho) / c
		if v >= 0 && v < float64(width) {
			xs[n], ys[n] = int(v), 0
			n++
		}
	}
	// Bottom edge y=height-1.
	if math.Abs(c) > eps && n < 4 {
		v := (float64(rho) - float64(height-1)*s) / c
		if v >= 0 && v < float64(width) {
			xs[n], ys[n] = int(v), height-1
			n++
		}
	}

	if n < 2 {
		return 0, 0, 0, 0
	}
	return xs[0], ys[0], xs[1], ys[1]
}
