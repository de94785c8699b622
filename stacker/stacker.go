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

// Package stacker averages full-resolution NV12 frames into periodic
// stack images. The ingest goroutine accumulates; a background encoder
// goroutine turns each completed average into a JPEG and uploads it
// with a companion JSON event carrying grid-motion metadata.
package stacker

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/night-watch-project/nightcam/gridmotion"
	"github.com/night-watch-project/nightcam/jpegenc"
	"github.com/night-watch-project/nightcam/loglimiter"
	"github.com/night-watch-project/nightcam/push"
)

const dropLogInterval = time.Minute

// stackEvent is the companion JSON body posted to /event after each
// stack upload.
type stackEvent struct {
	CameraID          string `json:"camera_id"`
	Type              string `json:"type"`
	TimestampMS       uint64 `json:"timestamp_ms"`
	Filename          string `json:"filename"`
	MotionPolls       int    `json:"motion_polls"`
	MotionActivePolls int    `json:"motion_active_polls"`
	MotionTotalROIs   int    `json:"motion_total_rois"`
	MotionLastROIs    int    `json:"motion_last_rois"`
}

type Stacker struct {
	conf      StackerConfig
	width     int
	height    int
	stationID string
	client    *push.Client
	enc       jpegenc.Encoder
	motion    *gridmotion.Monitor // optional

	// Accumulators, written only by the OnFrame caller.
	yAcc       []uint32
	uvAcc      []uint32
	frameCount int
	stackIndex int

	// Averaged output buffers. Owned by the OnFrame caller while no
	// encode is pending, and by the encoder goroutine from hand-off
	// until it finishes the upload.
	yAvg  []byte
	uvAvg []byte

	// Optional dark frame, loaded once and read-only thereafter. The
	// chroma subtraction assumes the dark frame was captured at
	// neutral (128) chrominance; a non-neutral dark file will shift
	// stack colours.
	yDark  []byte
	uvDark []byte

	dropLog *loglimiter.LogLimiter

	mu         sync.Mutex
	cond       *sync.Cond
	encPending bool
	encTS      uint64
	encIndex   int
	encStats   gridmotion.Stats
	running    bool
	done       chan struct{}
}

// NewStacker allocates the stacker and starts its encoder goroutine.
// The dark frame is optional: a missing file is fine, a wrong-sized one
// is ignored with a warning.
func NewStacker(conf StackerConfig, width, height int, stationID string, client *push.Client, enc jpegenc.Encoder, motion *gridmotion.Monitor) (*Stacker, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	ySz := width * height
	uvSz := width * (height / 2)
	s := &Stacker{
		conf:      conf,
		width:     width,
		height:    height,
		stationID: stationID,
		client:    client,
		enc:       enc,
		motion:    motion,
		yAcc:      make([]uint32, ySz),
		uvAcc:     make([]uint32, uvSz),
		yAvg:      make([]byte, ySz),
		uvAvg:     make([]byte, uvSz),
		dropLog:   loglimiter.New(dropLogInterval),
		running:   true,
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	if conf.DarkFramePath != "" {
		s.yDark, s.uvDark = loadDarkFrame(conf.DarkFramePath, ySz, uvSz)
	}

	go s.encodeWorker()
	return s, nil
}

// loadDarkFrame reads a raw dark frame: a luma plane followed by the
// half-height chroma plane. Absent or wrong-sized files are non-fatal.
func loadDarkFrame(path string, ySz, uvSz int) ([]byte, []byte) {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("stacker: no dark frame at %s", path)
		return nil, nil
	}
	if err != nil {
		log.Printf("stacker: dark frame unreadable: %v", err)
		return nil, nil
	}
	if len(data) != ySz+uvSz {
		log.Printf("stacker: dark frame %s is %d bytes (expected %d), ignoring",
			path, len(data), ySz+uvSz)
		return nil, nil
	}
	log.Printf("stacker: dark frame loaded from %s", path)
	return data[:ySz], data[ySz:]
}

// OnFrame accumulates one full-resolution frame. Every FramesPerStack
// frames the average is computed, dark-subtracted, and handed to the
// encoder. If the encoder is still busy the completed stack is dropped;
// OnFrame never blocks.
func (s *Stacker) OnFrame(y, uv []byte, tsMS uint64) {
	for i, v := range y {
		s.yAcc[i] += uint32(v)
	}
	for i, v := range uv {
		s.uvAcc[i] += uint32(v)
	}

	s.frameCount++
	if s.frameCount < s.conf.FramesPerStack {
		return
	}

	s.mu.Lock()
	busy := s.encPending
	s.mu.Unlock()
	if busy {
		// The encoder still owns the output buffers; this stack is
		// lost but accumulation starts over cleanly.
		s.resetAccumulators()
		s.dropLog.Printf("stacker: encode busy, dropping stack %d", s.stackIndex)
		return
	}

	n := uint32(s.frameCount)
	for i := range s.yAcc {
		s.yAvg[i] = uint8(s.yAcc[i] / n)
	}
	for i := range s.uvAcc {
		s.uvAvg[i] = uint8(s.uvAcc[i] / n)
	}
	s.resetAccumulators()

	if s.yDark != nil {
		for i := range s.yAvg {
			v := int(s.yAvg[i]) - int(s.yDark[i])
			if v < 0 {
				v = 0
			}
			s.yAvg[i] = uint8(v)
		}
		for i := range s.uvAvg {
			v := int(s.uvAvg[i]) - int(s.uvDark[i]) + 128
			s.uvAvg[i] = clamp8(v)
		}
	}

	var stats gridmotion.Stats
	if s.motion != nil {
		stats = s.motion.Snapshot()
		s.motion.Reset()
	}

	s.mu.Lock()
	s.stackIndex++
	s.encTS = tsMS
	s.encIndex = s.stackIndex
	s.encStats = stats
	s.encPending = true
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Stacker) resetAccumulators() {
	for i := range s.yAcc {
		s.yAcc[i] = 0
	}
	for i := range s.uvAcc {
		s.uvAcc[i] = 0
	}
	s.frameCount = 0
}

// Stop signals the encoder and waits for it to exit.
func (s *Stacker) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cond.Signal()
	s.mu.Unlock()
	<-s.done
}

func (s *Stacker) encodeWorker() {
	defer close(s.done)

	s.mu.Lock()
	for {
		for s.running && !s.encPending {
			s.cond.Wait()
		}
		if !s.running {
			break
		}

		ts := s.encTS
		idx := s.encIndex
		stats := s.encStats
		s.mu.Unlock()

		s.encodeAndPush(ts, idx, stats)

		s.mu.Lock()
		// Output buffers return to the accumulating side only now.
		s.encPending = false
	}
	s.mu.Unlock()
}

// encodeAndPush owns yAvg/uvAvg for its whole duration. All failures
// are logged and non-fatal.
func (s *Stacker) encodeAndPush(tsMS uint64, idx int, stats gridmotion.Stats) {
	filename := stackFilename(s.stationID, tsMS)
	tmpPath := filepath.Join(s.conf.TmpDir, fmt.Sprintf("nightcam-%d.jpg", idx))

	err := s.enc.EncodeNV12(tmpPath, s.yAvg, s.uvAvg, s.width, s.height, s.conf.JPEGQuality)
	if err != nil {
		log.Printf("stacker: encode failed for %s: %v", filename, err)
	} else {
		if err := s.client.PostStack(tmpPath, filename); err != nil {
			log.Printf("stacker: stack post failed: %v", err)
		} else {
			log.Printf("stacker: pushed %s", filename)
		}
		os.Remove(tmpPath)
	}

	event := stackEvent{
		CameraID:          s.stationID,
		Type:              "stack",
		TimestampMS:       tsMS,
		Filename:          filename,
		MotionPolls:       stats.Polls,
		MotionActivePolls: stats.ActivePolls,
		MotionTotalROIs:   stats.TotalROIs,
		MotionLastROIs:    stats.LastROIs,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("stacker: event encode failed: %v", err)
		return
	}
	if err := s.client.PostJSON(payload); err != nil {
		log.Printf("stacker: event post failed: %v", err)
	}
}

// stackFilename names a stack image from its UTC completion time:
// STACK_<station>_<YYYYMMDD>_<HHMMSS>_<mmm>.jpg
func stackFilename(stationID string, tsMS uint64) string {
	t := time.Unix(int64(tsMS/1000), 0).UTC()
	return fmt.Sprintf("STACK_%s_%04d%02d%02d_%02d%02d%02d_%03d.jpg",
		stationID,
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		tsMS%1000)
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
