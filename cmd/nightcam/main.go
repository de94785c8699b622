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
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"

	"github.com/night-watch-project/nightcam/capture"
	"github.com/night-watch-project/nightcam/detector"
	"github.com/night-watch-project/nightcam/ffbin"
	"github.com/night-watch-project/nightcam/gridmotion"
	"github.com/night-watch-project/nightcam/jpegenc"
	"github.com/night-watch-project/nightcam/push"
	"github.com/night-watch-project/nightcam/stacker"
	"github.com/night-watch-project/nightcam/throttle"
)

const (
	acquireRetryDelay = 10 * time.Millisecond

	frameLogIntervalFirstMin = 15 * 25
	frameLogInterval         = 60 * 5 * 25
	watchdogInterval         = 25 // roughly once a second
)

var version = "<not set>"

type Args struct {
	ConfigFile  string `arg:"-c,--config" help:"path to configuration file"`
	Timestamps  bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	TestRawFile string `arg:"-f,--testfile" help:"run a raw NV12 frame file through the detector and report the results"`
	Verbose     bool   `arg:"-v,--verbose" help:"make logging more verbose"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/nightcam.yaml"
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	conf.Detector.Verbose = args.Verbose
	logConfig(conf)

	client := push.NewClient(conf.ServerIP, conf.ServerPort,
		time.Duration(conf.TimeoutMS)*time.Millisecond)
	limiter := throttle.NewPublishLimiter(conf.Throttler)

	hdrTpl := ffbin.Header{
		StationID: conf.StationID,
		Width:     conf.Detector.DetectWidth,
		Height:    conf.Detector.DetectHeight,
		NFrames:   conf.Detector.BlockFrames,
		FPS:       conf.Detector.FPS,
		CamNo:     conf.CameraNumber,
	}

	engine, err := detector.NewEngine(conf.Detector, client, limiter, hdrTpl)
	if err != nil {
		return err
	}
	defer engine.Stop()

	if args.TestRawFile != "" {
		return runPlayback(args.TestRawFile, conf, engine)
	}

	monitor := gridmotion.NewMonitorFromConfig(conf.Motion)

	stack, err := stacker.NewStacker(conf.Stacker, conf.CaptureWidth, conf.CaptureHeight,
		conf.StationID, client, jpegenc.FileEncoder{}, monitor)
	if err != nil {
		return err
	}
	defer stack.Stop()

	log.Println("starting d-bus service")
	if err := startService(engine); err != nil {
		return err
	}

	clock := capture.NewSystemClock()
	source, err := capture.NewSocketSource(conf.FrameInput, conf.CaptureWidth, conf.CaptureHeight, clock)
	if err != nil {
		return err
	}

	var running int32 = 1
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Printf("received %v, shutting down", sig)
		atomic.StoreInt32(&running, 0)
		source.Close()
	}()

	daemon.SdNotify(false, "READY=1")

	runIngest(source, engine, stack, monitor, conf, &running)

	return nil
}

// runIngest is the frame loop: acquire, downsample, feed the detector,
// stacker and motion monitor, release. It only ever blocks in the
// capture collaborator.
func runIngest(source capture.Source, engine *detector.Engine, stack *stacker.Stacker,
	monitor *gridmotion.Monitor, conf *Config, running *int32) {

	detectBuf := make([]byte, conf.Detector.DetectWidth*conf.Detector.DetectHeight)
	totalFrames := 0

	for atomic.LoadInt32(running) == 1 {
		frame, err := source.Acquire()
		if err != nil {
			if atomic.LoadInt32(running) == 0 {
				break
			}
			time.Sleep(acquireRetryDelay)
			continue
		}

		downsampleY(frame.Y, frame.Width, frame.Height, frame.Width,
			detectBuf, conf.Detector.DetectWidth, conf.Detector.DetectHeight)

		engine.PushFrame(detectBuf, conf.Detector.DetectWidth, frame.TimestampMS)
		stack.OnFrame(frame.Y, frame.UV, frame.TimestampMS)
		monitor.OnFrame(detectBuf, conf.Detector.DetectWidth,
			conf.Detector.DetectWidth, conf.Detector.DetectHeight)

		source.Release(frame)

		totalFrames++
		if totalFrames%frameLogIntervalFirstMin == 0 && totalFrames <= 60*25 ||
			totalFrames%frameLogInterval == 0 {
			log.Printf("%d frames ingested", totalFrames)
		}
		if totalFrames%watchdogInterval == 0 {
			daemon.SdNotify(false, "WATCHDOG=1")
		}
	}

	log.Printf("ingest stopped after %d frames", totalFrames)
}

func logConfig(conf *Config) {
	log.Printf("station id: %s", conf.StationID)
	log.Printf("receiver: %s:%d (timeout %dms)", conf.ServerIP, conf.ServerPort, conf.TimeoutMS)
	log.Printf("frame input: %s (%dx%d)", conf.FrameInput, conf.CaptureWidth, conf.CaptureHeight)
	log.Printf("detector: %+v", conf.Detector)
	log.Printf("stacker: %+v", conf.Stacker)
	log.Printf("motion grid: %+v", conf.Motion)
	log.Printf("throttler: %+v", conf.Throttler)
}
