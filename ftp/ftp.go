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

// Package ftp implements Four-frame Temporal Pixel accumulation: a fixed
// 256-frame sequence of luma frames is compressed into four per-pixel
// statistic planes (max, frame-of-max, average, standard deviation) using
// only integer arithmetic.
package ftp

// BlockFrames is the number of frames accumulated per block.
// 256 is the RMS standard and lets frame indexes fit a byte.
const BlockFrames = 256

// Pixel holds the accumulated state for one pixel position.
// Sum tops out at 256*255 = 65280 and SumSq at 256*255² = 16646400,
// so both fit their declared widths for a full block.
type Pixel struct {
	MaxPixel uint8
	MaxFrame uint8
	Sum      uint16
	SumSq    uint32
}

// Block is one accumulation block at detection resolution.
type Block struct {
	Width  int
	Height int
	Pixels []Pixel

	// BlockIndex is a rolling counter advanced on every Reset.
	BlockIndex uint8

	// StartMS is the wall-clock stamp of the first frame in the block,
	// set by Reset. EndMS is the stamp of the last frame, set by the
	// owner at hand-off time.
	StartMS uint64
	EndMS   uint64

	FrameCount int
}

func NewBlock(width, height int) *Block {
	return &Block{
		Width:  width,
		Height: height,
		Pixels: make([]Pixel, width*height),
	}
}

// Reset clears all pixel state for a new accumulation cycle and stamps
// the block with the first frame's timestamp.
func (b *Block) Reset(startMS uint64) {
	for i := range b.Pixels {
		b.Pixels[i] = Pixel{}
	}
	b.FrameCount = 0
	b.StartMS = startMS
	b.EndMS = 0
	b.BlockIndex++
}

// Update accumulates one luma frame. frameIdx is the frame's position
// within the current block, truncated to 8 bits by the caller.
func (b *Block) Update(yPlane []byte, stride int, frameIdx uint8) {
	for y := 0; y < b.Height; y++ {
		row := yPlane[y*stride : y*stride+b.Width]
		pix := b.Pixels[y*b.Width : (y+1)*b.Width]
		for x, luma := range row {
			p := &pix[x]
			if luma > p.MaxPixel {
				p.MaxPixel = luma
				p.MaxFrame = frameIdx
			}
			p.Sum += uint16(luma)
			p.SumSq += uint32(luma) * uint32(luma)
		}
	}
	b.FrameCount++
}

// Finalize computes the four output planes from the accumulated sums.
// Each output slice must hold Width*Height bytes. Average and standard
// deviation saturate to 255; integer truncation can make sumSq/f dip
// below avg², in which case the variance clamps to zero.
func (b *Block) Finalize(outMax, outMaxf, outAvg, outStd []byte) {
	fc := uint32(b.FrameCount)
	if fc == 0 {
		fc = 1
	}
	for i := range b.Pixels {
		p := &b.Pixels[i]
		avg := uint32(p.Sum) / fc
		avgSq := p.SumSq / fc

		outMax[i] = p.MaxPixel
		outMaxf[i] = p.MaxFrame
		if avg > 255 {
			outAvg[i] = 255
		} else {
			outAvg[i] = uint8(avg)
		}

		var variance uint32
		if avgSq > avg*avg {
			variance = avgSq - avg*avg
		}
		std := isqrt(variance)
		if std > 255 {
			outStd[i] = 255
		} else {
			outStd[i] = uint8(std)
		}
	}
}

// isqrt returns the integer square root of n by Newton's method.
func isqrt(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	x := n
	x1 := (x + 1) / 2
	for x1 < x {
		x = x1
		x1 = (x + n/x) / 2
	}
	return x
}
