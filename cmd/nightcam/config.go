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
	"errors"
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"

	"github.com/night-watch-project/nightcam/detector"
	"github.com/night-watch-project/nightcam/gridmotion"
	"github.com/night-watch-project/nightcam/stacker"
	"github.com/night-watch-project/nightcam/throttle"
)

type Config struct {
	StationID    string `yaml:"station-id"`
	CameraNumber uint32 `yaml:"camera-number"`

	ServerIP   string `yaml:"server-ip"`
	ServerPort int    `yaml:"server-port"`
	TimeoutMS  int    `yaml:"timeout-ms"`

	FrameInput    string `yaml:"frame-input"`
	CaptureWidth  int    `yaml:"capture-width"`
	CaptureHeight int    `yaml:"capture-height"`

	Detector  detector.DetectorConfig  `yaml:"detector"`
	Stacker   stacker.StackerConfig    `yaml:"stacker"`
	Motion    gridmotion.MotionConfig  `yaml:"motion"`
	Throttler throttle.ThrottlerConfig `yaml:"throttler"`
}

var defaultConfig = Config{
	StationID:     "XX0001",
	CameraNumber:  1,
	ServerIP:      "192.168.1.245",
	ServerPort:    8765,
	TimeoutMS:     5000,
	FrameInput:    "/var/run/nightcam-frames",
	CaptureWidth:  1920,
	CaptureHeight: 1080,
	Detector:      detector.DefaultDetectorConfig(),
	Stacker:       stacker.DefaultStackerConfig(),
	Motion:        gridmotion.DefaultMotionConfig(),
	Throttler:     throttle.DefaultThrottlerConfig(),
}

func (conf *Config) Validate() error {
	if conf.StationID == "" {
		return errors.New("station-id must be set")
	}
	if conf.ServerIP == "" {
		return errors.New("server-ip must be set")
	}
	if conf.ServerPort < 1 || conf.ServerPort > 65535 {
		return errors.New("server-port out of range")
	}
	if conf.TimeoutMS < 1 {
		return errors.New("timeout-ms must be positive")
	}
	if conf.CaptureWidth < conf.Detector.DetectWidth ||
		conf.CaptureHeight < conf.Detector.DetectHeight {
		return errors.New("capture resolution smaller than detect resolution")
	}
	if conf.CaptureHeight%2 != 0 {
		return errors.New("capture-height must be even")
	}
	if err := conf.Detector.Validate(); err != nil {
		return err
	}
	if err := conf.Stacker.Validate(); err != nil {
		return err
	}
	return conf.Motion.Validate()
}

func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
