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

package hough

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigTableAnchors(t *testing.T) {
	NewAccumulator() // forces table init

	assert.Equal(t, int16(1024), cosTab[0])
	assert.Equal(t, int16(0), sinTab[0])
	assert.Equal(t, int16(0), cosTab[90])
	assert.Equal(t, int16(1024), sinTab[90])
	// cos 45° and sin 45° round to the same fixed-point value.
	assert.Equal(t, int16(724), cosTab[45])
	assert.Equal(t, int16(724), sinTab[45])
	assert.Equal(t, cosTab[45], sinTab[45])
}

func countVotes(a *Accumulator) int {
	total := 0
	for _, v := range a.cells {
		total += int(v)
	}
	return total
}

func TestVoteTouchesEveryThetaForInRangePoints(t *testing.T) {
	a := NewAccumulator()

	// Any point within a 640x480 frame keeps every rho in range, so a
	// single vote increments exactly ThetaSteps cells.
	for _, pt := range [][2]int{{0, 0}, {639, 479}, {320, 240}, {639, 0}, {0, 479}} {
		a.Reset()
		a.Vote(pt[0], pt[1])
		assert.Equal(t, ThetaSteps, countVotes(a), "point %v", pt)
	}
}

func TestVoteSkipsOutOfRangeRho(t *testing.T) {
	a := NewAccumulator()
	// A point far outside any supported detection resolution pushes
	// some rho values beyond +RhoMax.
	a.Vote(2000, 2000)
	assert.True(t, countVotes(a) < ThetaSteps)
}

func TestVoteSaturatesAtMaxCount(t *testing.T) {
	a := NewAccumulator()
	for i := 0; i < 0xFFFF+100; i++ {
		a.Vote(100, 100)
	}
	for _, v := range a.cells {
		assert.True(t, v <= 0xFFFF)
	}
	// The cell for theta=0 (rho = x) must have pinned at the cap.
	assert.Equal(t, uint16(0xFFFF), a.at(100+RhoMax, 0))
}

func TestResetZeroesAccumulator(t *testing.T) {
	a := NewAccumulator()
	a.Vote(10, 10)
	a.Reset()
	assert.Equal(t, 0, countVotes(a))
}

func (a *Accumulator) set(rho, theta int, v uint16) {
	a.cells[(rho+RhoMax)*ThetaSteps+theta] = v
}

func TestFindPeaksThresholdAndSuppression(t *testing.T) {
	a := NewAccumulator()

	a.set(10, 40, 12) // peak
	a.set(10, 41, 9)  // below the peak, suppressed
	a.set(-5, 90, 7)  // below threshold

	lines := a.FindPeaks(8, 16)
	require.Len(t, lines, 1)
	assert.Equal(t, 10, lines[0].Rho)
	assert.Equal(t, 40, lines[0].Theta)
	assert.Equal(t, 12, lines[0].Votes)
	assert.Equal(t, 12, lines[0].LengthPx)
}

func TestFindPeaksTieEmitsOnce(t *testing.T) {
	a := NewAccumulator()

	// Two equal adjacent cells: suppression uses a strict comparison,
	// so both survive it, but each is still reported as its own line
	// only once; the ridge yields exactly the two cells, no repeats.
	a.set(20, 60, 15)
	a.set(20, 61, 15)

	lines := a.FindPeaks(8, 16)
	require.Len(t, lines, 2)
	assert.NotEqual(t, lines[0].Theta, lines[1].Theta)
}

func TestFindPeaksRespectsMaxLines(t *testing.T) {
	a := NewAccumulator()
	for i := 0; i < 10; i++ {
		a.set(-200+10*i, 30, 20)
	}
	lines := a.FindPeaks(8, 4)
	assert.Len(t, lines, 4)
}

func TestFindPeaksNeverEmitsSuppressedOrWeakCells(t *testing.T) {
	a := NewAccumulator()
	a.Reset()
	for _, pt := range [][2]int{{50, 60}, {51, 61}, {52, 62}, {200, 100}, {201, 101}} {
		for i := 0; i < 5; i++ {
			a.Vote(pt[0], pt[1])
		}
	}

	for _, line := range a.FindPeaks(8, 16) {
		r := line.Rho + RhoMax
		v := uint16(line.Votes)
		assert.True(t, line.Votes >= 8)
		for dr := -1; dr <= 1; dr++ {
			for dt := -1; dt <= 1; dt++ {
				assert.True(t, a.at(r+dr, line.Theta+dt) <= v)
			}
		}
	}
}
