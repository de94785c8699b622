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

// Package jpegenc is the image-encoder collaborator contract consumed
// by the stacker, with a default implementation that maps NV12 planes
// onto a 4:2:0 YCbCr image. Implementations need not be safe for
// concurrent use across output paths; the stacker drives its encoder
// from a single goroutine.
package jpegenc

import (
	"image"
	"image/jpeg"
	"os"
)

type Encoder interface {
	EncodeNV12(path string, y, uv []byte, width, height, quality int) error
}

// FileEncoder writes JPEG files using the standard library encoder.
type FileEncoder struct{}

func (FileEncoder) EncodeNV12(path string, y, uv []byte, width, height, quality int) error {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copy(img.Y, y)

	// Deinterleave the NV12 UV plane into the planar Cb/Cr planes.
	cw := width / 2
	for cy := 0; cy < height/2; cy++ {
		row := uv[cy*width : (cy+1)*width]
		for cx := 0; cx < cw; cx++ {
			img.Cb[cy*img.CStride+cx] = row[2*cx]
			img.Cr[cy*img.CStride+cx] = row[2*cx+1]
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
