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
	"errors"

	"github.com/night-watch-project/nightcam/ftp"
	"github.com/night-watch-project/nightcam/hough"
)

type DetectorConfig struct {
	DetectWidth  int     `yaml:"detect-width"`
	DetectHeight int     `yaml:"detect-height"`
	BlockFrames  int     `yaml:"block-frames"`
	FPS          float64 `yaml:"fps"`

	// KSigma is the candidate threshold multiplier: a pixel is a
	// candidate when max - avg exceeds KSigma * std. 3 suits low-noise
	// sensors; 5-6 suits high-gain embedded cameras.
	KSigma int `yaml:"k-sigma"`

	PeakThreshold int `yaml:"peak-threshold"`
	MinVotes      int `yaml:"min-votes"`
	MinLengthPx   int `yaml:"min-length-px"`
	MinCandidates int `yaml:"min-candidates"`
	MaxCandidates int `yaml:"max-candidates"`

	FFTmpDir string `yaml:"ff-tmp-dir"`
	Verbose  bool   `yaml:"verbose"`
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		DetectWidth:   640,
		DetectHeight:  480,
		BlockFrames:   ftp.BlockFrames,
		FPS:           25.0,
		KSigma:        5,
		PeakThreshold: 8,
		MinVotes:      10,
		MinLengthPx:   15,
		MinCandidates: 5,
		MaxCandidates: 4096,
		FFTmpDir:      "/var/spool/nightcam/ff-tmp",
	}
}

func (conf *DetectorConfig) Validate() error {
	if conf.DetectWidth <= 0 || conf.DetectHeight <= 0 {
		return errors.New("detect resolution must be positive")
	}
	w, h := conf.DetectWidth, conf.DetectHeight
	if w*w+h*h > hough.RhoMax*hough.RhoMax {
		return errors.New("detect resolution diagonal exceeds hough rho range")
	}
	if conf.BlockFrames <= 0 || conf.BlockFrames > ftp.BlockFrames {
		return errors.New("block-frames must be in 1..256")
	}
	if conf.FPS <= 0 {
		return errors.New("fps must be positive")
	}
	if conf.MinCandidates < 1 || conf.MaxCandidates < conf.MinCandidates {
		return errors.New("candidate limits are inconsistent")
	}
	if conf.FFTmpDir == "" {
		return errors.New("ff-tmp-dir must be set")
	}
	return nil
}
