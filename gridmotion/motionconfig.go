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

package gridmotion

import "errors"

const maxGridCells = 52

type MotionConfig struct {
	GridCols    int `yaml:"grid-cols"`
	GridRows    int `yaml:"grid-rows"`
	DeltaThresh int `yaml:"delta-thresh"`
}

func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		GridCols:    8,
		GridRows:    6,
		DeltaThresh: 12,
	}
}

func (conf *MotionConfig) Validate() error {
	if conf.GridCols < 1 || conf.GridRows < 1 {
		return errors.New("grid dimensions must be at least 1")
	}
	if conf.GridCols*conf.GridRows > maxGridCells {
		return errors.New("grid has too many cells")
	}
	if conf.DeltaThresh < 1 {
		return errors.New("delta-thresh must be at least 1")
	}
	return nil
}

// NewMonitorFromConfig is the config-driven constructor used by main.
func NewMonitorFromConfig(conf MotionConfig) *Monitor {
	return NewMonitor(conf.GridCols, conf.GridRows, conf.DeltaThresh)
}
