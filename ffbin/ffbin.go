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

// Package ffbin reads and writes RMS-compatible FF binary block files.
//
// Layout (little-endian, packed):
//
//	int32   -1          version marker
//	uint32  nrows       frame height
//	uint32  ncols       frame width
//	uint32  nframes     frames per block (Header.NFrames, normally 256)
//	uint32  first       first frame number, 0
//	uint32  camno       numeric camera identifier
//	uint32  decimation  1
//	uint32  interleave  0
//	uint32  fps_milli   fps * 1000
//	[nrows*ncols]uint8  maxpixel, maxframe, avepixel, stdpixel planes
//
// The receiver can feed these files to unmodified RMS tooling.
package ffbin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

const versionMarker = int32(-1)

// Header is the metadata for one FF file. The station fields are fixed
// for a camera's lifetime; the date/time fields are overwritten per
// block from the block timestamp.
type Header struct {
	StationID   string
	Year        int
	Month       int
	Day         int
	Hour        int
	Minute      int
	Second      int
	Millisecond int
	Width       int
	Height      int
	NFrames     int
	FPS         float64
	CamNo       uint32
}

// WithTimestamp returns a copy of the header with the date/time fields
// set from a wall-clock millisecond timestamp, converted to UTC.
func (h Header) WithTimestamp(tsMS uint64) Header {
	t := time.Unix(int64(tsMS/1000), 0).UTC()
	h.Year = t.Year()
	h.Month = int(t.Month())
	h.Day = t.Day()
	h.Hour = t.Hour()
	h.Minute = t.Minute()
	h.Second = t.Second()
	h.Millisecond = int(tsMS % 1000)
	return h
}

// Filename returns the canonical RMS name for the header:
// FF_<station>_<YYYYMMDD>_<HHMMSS>_<mmm>_000000.bin
func (h Header) Filename() string {
	return fmt.Sprintf("FF_%s_%04d%02d%02d_%02d%02d%02d_%03d_000000.bin",
		h.StationID,
		h.Year, h.Month, h.Day,
		h.Hour, h.Minute, h.Second,
		h.Millisecond)
}

// Write serialises the header and the four statistic planes to path.
// Each plane must hold Width*Height bytes.
func Write(path string, hdr Header, maxPixel, maxFrame, avgPixel, stdPixel []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)

	vm := versionMarker
	fields := []uint32{
		uint32(vm),
		uint32(hdr.Height),
		uint32(hdr.Width),
		uint32(hdr.NFrames),
		0, // first frame number
		hdr.CamNo,
		1, // decimation
		0, // interleave
		uint32(math.Round(hdr.FPS * 1000)),
	}
	for _, v := range fields {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			f.Close()
			return err
		}
	}

	for _, plane := range [][]byte{maxPixel, maxFrame, avgPixel, stdPixel} {
		if _, err := bw.Write(plane); err != nil {
			f.Close()
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// File is the parsed contents of an FF block file.
type File struct {
	Height     int
	Width      int
	NFrames    int
	CamNo      uint32
	Decimation uint32
	Interleave uint32
	FPSMilli   uint32

	MaxPixel []byte
	MaxFrame []byte
	AvgPixel []byte
	StdPixel []byte
}

// Read parses an FF block file written by Write.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)

	var fields [9]uint32
	for i := range fields {
		if err := binary.Read(br, binary.LittleEndian, &fields[i]); err != nil {
			return nil, err
		}
	}
	if int32(fields[0]) != versionMarker {
		return nil, fmt.Errorf("ffbin: bad version marker %#x", fields[0])
	}

	ff := &File{
		Height:     int(fields[1]),
		Width:      int(fields[2]),
		NFrames:    int(fields[3]),
		CamNo:      fields[5],
		Decimation: fields[6],
		Interleave: fields[7],
		FPSMilli:   fields[8],
	}

	planeSz := ff.Width * ff.Height
	planes := make([]byte, 4*planeSz)
	if _, err := io.ReadFull(br, planes); err != nil {
		return nil, err
	}
	ff.MaxPixel = planes[:planeSz]
	ff.MaxFrame = planes[planeSz : 2*planeSz]
	ff.AvgPixel = planes[2*planeSz : 3*planeSz]
	ff.StdPixel = planes[3*planeSz:]
	return ff, nil
}
