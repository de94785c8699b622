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

package stacker

import "errors"

type StackerConfig struct {
	FramesPerStack int    `yaml:"frames-per-stack"`
	JPEGQuality    int    `yaml:"jpeg-quality"`
	TmpDir         string `yaml:"tmp-dir"`
	DarkFramePath  string `yaml:"dark-frame"`
}

func DefaultStackerConfig() StackerConfig {
	return StackerConfig{
		FramesPerStack: 750, // 30 s at 25 fps
		JPEGQuality:    85,
		TmpDir:         "/tmp",
	}
}

func (conf *StackerConfig) Validate() error {
	if conf.FramesPerStack < 1 {
		return errors.New("frames-per-stack must be at least 1")
	}
	if conf.JPEGQuality < 1 || conf.JPEGQuality > 100 {
		return errors.New("jpeg-quality must be in 1..100")
	}
	if conf.TmpDir == "" {
		return errors.New("tmp-dir must be set")
	}
	return nil
}
