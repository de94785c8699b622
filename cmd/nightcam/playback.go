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

import (
	"fmt"
	"io/ioutil"
	"log"

	"github.com/night-watch-project/nightcam/capture"
	"github.com/night-watch-project/nightcam/detector"
)

// loadRawFrames slices a file of concatenated raw NV12 frames at the
// capture resolution into playback frames with synthetic timestamps at
// the nominal frame interval.
func loadRawFrames(filename string, conf *Config) ([]*capture.Frame, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	ySz := conf.CaptureWidth * conf.CaptureHeight
	frameSz := ySz + conf.CaptureWidth*(conf.CaptureHeight/2)
	if len(data) == 0 || len(data)%frameSz != 0 {
		return nil, fmt.Errorf("%s is not a whole number of %dx%d NV12 frames",
			filename, conf.CaptureWidth, conf.CaptureHeight)
	}

	intervalMS := uint64(1000 / conf.Detector.FPS)
	frames := make([]*capture.Frame, len(data)/frameSz)
	for i := range frames {
		raw := data[i*frameSz : (i+1)*frameSz]
		frames[i] = &capture.Frame{
			Y:           raw[:ySz],
			UV:          raw[ySz:],
			Width:       conf.CaptureWidth,
			Height:      conf.CaptureHeight,
			TimestampMS: uint64(i) * intervalMS,
		}
	}
	return frames, nil
}

// runPlayback feeds a recorded raw frame file through the detector and
// reports what it found. Used for bench tuning of the threshold and
// Hough parameters against known footage.
func runPlayback(filename string, conf *Config, engine *detector.Engine) error {
	frames, err := loadRawFrames(filename, conf)
	if err != nil {
		return err
	}
	log.Printf("playing back %d frames from %s", len(frames), filename)

	source := capture.NewMemorySource(frames)
	detectBuf := make([]byte, conf.Detector.DetectWidth*conf.Detector.DetectHeight)

	for {
		frame, err := source.Acquire()
		if err != nil {
			break
		}
		downsampleY(frame.Y, frame.Width, frame.Height, frame.Width,
			detectBuf, conf.Detector.DetectWidth, conf.Detector.DetectHeight)
		engine.PushFrame(detectBuf, conf.Detector.DetectWidth, frame.TimestampMS)
		source.Release(frame)
	}

	engine.Stop()
	stats := engine.Stats()
	log.Printf("playback: %d blocks processed, %d candidates in last block, %d meteors published",
		stats.BlocksProcessed, stats.LastCandidates, stats.MeteorsPublished)
	return nil
}
