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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	conf := DefaultDetectorConfig()
	assert.NoError(t, conf.Validate())
	assert.Equal(t, 640, conf.DetectWidth)
	assert.Equal(t, 480, conf.DetectHeight)
	assert.Equal(t, 256, conf.BlockFrames)
	assert.Equal(t, 5, conf.KSigma)
}

func TestValidateRejectsOversizedResolution(t *testing.T) {
	conf := DefaultDetectorConfig()
	conf.DetectWidth = 700
	conf.DetectHeight = 700
	assert.Error(t, conf.Validate())
}

func TestValidateRejectsBadBlockFrames(t *testing.T) {
	conf := DefaultDetectorConfig()
	conf.BlockFrames = 0
	assert.Error(t, conf.Validate())

	conf = DefaultDetectorConfig()
	conf.BlockFrames = 512
	assert.Error(t, conf.Validate())
}

func TestValidateRejectsInconsistentCandidateLimits(t *testing.T) {
	conf := DefaultDetectorConfig()
	conf.MinCandidates = 100
	conf.MaxCandidates = 10
	assert.Error(t, conf.Validate())
}
