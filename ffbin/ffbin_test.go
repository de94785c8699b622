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

package ffbin

import (
	"encoding/binary"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() Header {
	return Header{
		StationID:   "NW0042",
		Year:        2024,
		Month:       8,
		Day:         12,
		Hour:        23,
		Minute:      41,
		Second:      7,
		Millisecond: 250,
		Width:       640,
		Height:      480,
		NFrames:     256,
		FPS:         25.0,
		CamNo:       42,
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t,
		"FF_NW0042_20240812_234107_250_000000.bin",
		testHeader().Filename())
}

func TestWithTimestampUsesUTC(t *testing.T) {
	// 2024-08-12 23:41:07.250 UTC
	hdr := Header{StationID: "NW0042"}.WithTimestamp(1723506067250)
	assert.Equal(t, 2024, hdr.Year)
	assert.Equal(t, 8, hdr.Month)
	assert.Equal(t, 12, hdr.Day)
	assert.Equal(t, 23, hdr.Hour)
	assert.Equal(t, 41, hdr.Minute)
	assert.Equal(t, 7, hdr.Second)
	assert.Equal(t, 250, hdr.Millisecond)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffbin")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	hdr := testHeader()
	planeSz := hdr.Width * hdr.Height
	rng := rand.New(rand.NewSource(7))
	planes := make([][]byte, 4)
	for i := range planes {
		planes[i] = make([]byte, planeSz)
		rng.Read(planes[i])
	}

	path := filepath.Join(dir, hdr.Filename())
	require.NoError(t, Write(path, hdr, planes[0], planes[1], planes[2], planes[3]))

	ff, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, hdr.Height, ff.Height)
	assert.Equal(t, hdr.Width, ff.Width)
	assert.Equal(t, hdr.NFrames, ff.NFrames)
	assert.Equal(t, hdr.CamNo, ff.CamNo)
	assert.Equal(t, uint32(1), ff.Decimation)
	assert.Equal(t, uint32(0), ff.Interleave)
	assert.Equal(t, uint32(25000), ff.FPSMilli)

	assert.Empty(t, cmp.Diff(planes[0], ff.MaxPixel))
	assert.Empty(t, cmp.Diff(planes[1], ff.MaxFrame))
	assert.Empty(t, cmp.Diff(planes[2], ff.AvgPixel))
	assert.Empty(t, cmp.Diff(planes[3], ff.StdPixel))
}

func TestWriteLayoutIsBitExact(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffbin")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	hdr := testHeader()
	hdr.Width = 4
	hdr.Height = 2
	hdr.FPS = 25.0
	planeSz := 8

	fill := func(v byte) []byte {
		p := make([]byte, planeSz)
		for i := range p {
			p[i] = v
		}
		return p
	}

	path := filepath.Join(dir, "ff.bin")
	require.NoError(t, Write(path, hdr, fill(1), fill(2), fill(3), fill(4)))

	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 36+4*planeSz)

	// Version marker is the two's-complement encoding of -1.
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, raw[0:4])
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[4:8]))    // nrows
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(raw[8:12]))   // ncols
	assert.Equal(t, uint32(256), binary.LittleEndian.Uint32(raw[12:16]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(raw[16:20]))
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(raw[20:24]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[24:28]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(raw[28:32]))
	assert.Equal(t, uint32(25000), binary.LittleEndian.Uint32(raw[32:36]))

	for i := 0; i < planeSz; i++ {
		assert.Equal(t, byte(1), raw[36+i])
		assert.Equal(t, byte(2), raw[36+planeSz+i])
		assert.Equal(t, byte(3), raw[36+2*planeSz+i])
		assert.Equal(t, byte(4), raw[36+3*planeSz+i])
	}
}

func TestFPSMilliRounds(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffbin")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	hdr := testHeader()
	hdr.Width = 1
	hdr.Height = 1
	hdr.FPS = 29.97

	path := filepath.Join(dir, "ff.bin")
	plane := []byte{0}
	require.NoError(t, Write(path, hdr, plane, plane, plane, plane))

	ff, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(29970), ff.FPSMilli)
}

func TestReadRejectsBadVersionMarker(t *testing.T) {
	dir, err := ioutil.TempDir("", "ffbin")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "bogus.bin")
	require.NoError(t, ioutil.WriteFile(path, make([]byte, 64), 0644))

	_, err = Read(path)
	assert.Error(t, err)
}
