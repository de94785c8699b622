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

package main

// downsampleY reduces a full-resolution luma plane to detection
// resolution by nearest-neighbour sampling with integer steps. Cheap
// enough for a MIPS32 core at 25 fps.
func downsampleY(src []byte, srcW, srcH, srcStride int, dst []byte, dstW, dstH int) {
	xStep := srcW / dstW
	yStep := srcH / dstH

	for dy := 0; dy < dstH; dy++ {
		srcRow := src[dy*yStep*srcStride:]
		dstRow := dst[dy*dstW : (dy+1)*dstW]
		for dx := range dstRow {
			dstRow[dx] = srcRow[dx*xStep]
		}
	}
}
