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

// Package detector runs the FTP → threshold → Hough → validate → publish
// pipeline. Two FTP blocks are double-buffered so that frame
// accumulation continues in the ingest goroutine while the previous
// block is processed by a dedicated worker.
package detector

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/night-watch-project/nightcam/ffbin"
	"github.com/night-watch-project/nightcam/ftp"
	"github.com/night-watch-project/nightcam/hough"
	"github.com/night-watch-project/nightcam/loglimiter"
	"github.com/night-watch-project/nightcam/push"
	"github.com/night-watch-project/nightcam/throttle"
)

// MaxLines bounds the number of Hough peaks examined per block.
const MaxLines = 16

const dropLogInterval = time.Minute

// Listener receives pipeline notifications. All callbacks run outside
// the engine's internal lock; BlockProcessed and MeteorPublished run on
// the worker goroutine, BlockDropped on the ingest goroutine.
type Listener interface {
	BlockProcessed(candidates int)
	BlockDropped()
	MeteorPublished(line hough.Line, lengthPx int)
}

// Stats are cumulative counters since engine start.
type Stats struct {
	BlocksProcessed  int
	BlocksDropped    int
	MeteorsPublished int
	LastCandidates   int
}

type Engine struct {
	conf     DetectorConfig
	client   *push.Client
	limiter  *throttle.PublishLimiter
	hdrTpl   ffbin.Header
	listener Listener

	blocks [2]*ftp.Block
	active int

	accum *hough.Accumulator

	maxPixel []byte
	maxFrame []byte
	avgPixel []byte
	stdPixel []byte

	candX []int
	candY []int

	// frameCount tracks frames fed to the active block. Touched only by
	// the ingest goroutine.
	frameCount int

	dropLog *loglimiter.LogLimiter

	mu      sync.Mutex
	cond    *sync.Cond
	pending int // block index awaiting processing, or -1
	running bool
	stats   Stats
	done    chan struct{}
}

// NewEngine allocates the engine and starts its worker goroutine. The
// header template's station fields are used verbatim; its date/time
// fields are overwritten per block.
func NewEngine(conf DetectorConfig, client *push.Client, limiter *throttle.PublishLimiter, hdrTpl ffbin.Header) (*Engine, error) {
	e, err := newEngine(conf, client, limiter, hdrTpl)
	if err != nil {
		return nil, err
	}
	go e.worker()
	return e, nil
}

func newEngine(conf DetectorConfig, client *push.Client, limiter *throttle.PublishLimiter, hdrTpl ffbin.Header) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(conf.FFTmpDir, 0755); err != nil {
		return nil, err
	}

	plane := conf.DetectWidth * conf.DetectHeight
	e := &Engine{
		conf:     conf,
		client:   client,
		limiter:  limiter,
		hdrTpl:   hdrTpl,
		accum:    hough.NewAccumulator(),
		maxPixel: make([]byte, plane),
		maxFrame: make([]byte, plane),
		avgPixel: make([]byte, plane),
		stdPixel: make([]byte, plane),
		candX:    make([]int, conf.MaxCandidates),
		candY:    make([]int, conf.MaxCandidates),
		dropLog:  loglimiter.New(dropLogInterval),
		pending:  -1,
		running:  true,
		done:     make(chan struct{}),
	}
	e.blocks[0] = ftp.NewBlock(conf.DetectWidth, conf.DetectHeight)
	e.blocks[1] = ftp.NewBlock(conf.DetectWidth, conf.DetectHeight)
	e.cond = sync.NewCond(&e.mu)
	return e, nil
}

// SetListener must be called before the first PushFrame.
func (e *Engine) SetListener(l Listener) {
	e.listener = l
}

// PushFrame feeds one downsampled luma frame. Called from the ingest
// goroutine once per camera frame; it never blocks on the worker. When
// a block completes while the previous one is still being processed,
// the just-completed block is dropped.
func (e *Engine) PushFrame(yPlane []byte, stride int, tsMS uint64) {
	a := e.active
	if e.frameCount == 0 {
		e.blocks[a].Reset(tsMS)
	}

	e.blocks[a].Update(yPlane, stride, uint8(e.frameCount&0xFF))
	e.frameCount++

	if e.frameCount < e.conf.BlockFrames {
		return
	}

	e.blocks[a].EndMS = tsMS

	dropped := false
	e.mu.Lock()
	if e.pending < 0 {
		e.pending = a
		e.active = 1 - a
		e.frameCount = 0
		e.cond.Signal()
	} else {
		e.stats.BlocksDropped++
		e.frameCount = 0
		dropped = true
	}
	e.mu.Unlock()

	if dropped {
		e.dropLog.Print("detector: processing busy, block dropped")
		if e.listener != nil {
			e.listener.BlockDropped()
		}
	}
}

// Stats returns a copy of the cumulative counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Stop signals the worker and waits for it to exit. Any pending
// unprocessed block is discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cond.Signal()
	e.mu.Unlock()
	<-e.done
}

func (e *Engine) worker() {
	defer close(e.done)

	e.mu.Lock()
	for {
		for e.running && e.pending < 0 {
			e.cond.Wait()
		}
		if !e.running {
			break
		}

		bidx := e.pending
		e.pending = -1
		e.mu.Unlock()

		candidates := e.processBlock(e.blocks[bidx])

		e.mu.Lock()
		e.stats.BlocksProcessed++
		e.stats.LastCandidates = candidates
	}
	e.mu.Unlock()
}

// processBlock finalises a completed block, thresholds candidates, runs
// the Hough transform and publishes at most one validated detection.
// Publication failures are logged and never abort the worker.
func (e *Engine) processBlock(b *ftp.Block) (candidates int) {
	defer func() {
		b.Reset(0)
		if e.listener != nil {
			e.listener.BlockProcessed(candidates)
		}
	}()

	b.Finalize(e.maxPixel, e.maxFrame, e.avgPixel, e.stdPixel)

	ncands := e.collectCandidates()
	candidates = ncands
	if e.conf.Verbose {
		log.Printf("detector: block %d - %d candidates", b.BlockIndex, ncands)
	}

	if ncands < e.conf.MinCandidates {
		return ncands
	}

	// A saturated candidate buffer means a scene-wide brightness event
	// (cloud, dew, gain surge) or sensor noise, not a meteor streak.
	if ncands >= e.conf.MaxCandidates {
		log.Print("detector: candidate buffer saturated, skipping block")
		return ncands
	}

	e.accum.Reset()
	for i := 0; i < ncands; i++ {
		e.accum.Vote(e.candX[i], e.candY[i])
	}

	lines := e.accum.FindPeaks(e.conf.PeakThreshold, MaxLines)
	if e.conf.Verbose {
		log.Printf("detector: %d hough peaks", len(lines))
	}

	for _, line := range lines {
		if line.Votes < e.conf.MinVotes {
			continue
		}

		x1, y1, x2, y2 := lineEndpoints(line.Rho, line.Theta, e.conf.DetectWidth, e.conf.DetectHeight)
		dx, dy := x2-x1, y2-y1
		lengthPx := isqrtInt(dx*dx + dy*dy)
		if lengthPx < e.conf.MinLengthPx {
			continue
		}

		log.Printf("detector: meteor candidate rho=%d theta=%d votes=%d len=%dpx",
			line.Rho, line.Theta, line.Votes, lengthPx)

		if !e.limiter.TryPublish() {
			log.Print("detector: publication throttled")
			break
		}

		if e.publish(b, line, x1, y1, x2, y2, lengthPx) {
			e.mu.Lock()
			e.stats.MeteorsPublished++
			e.mu.Unlock()
			if e.listener != nil {
				e.listener.MeteorPublished(line, lengthPx)
			}
		}

		// One detection per block: the FF format's unit is the block,
		// and the receiver expects at most one file for it.
		break
	}

	return ncands
}

// collectCandidates scans the finalised planes for pixels whose
// max - avg exceeds KSigma * std. Both sides of the comparison are
// reduced to unsigned 8-bit values first: the right-hand side wraps,
// which effectively caps the threshold at 255 and accepts everything
// past it. Wider arithmetic here would change reject counts near the
// saturation band.
func (e *Engine) collectCandidates() int {
	count := 0
	k := e.conf.KSigma
	w := e.conf.DetectWidth
	for i := 0; i < len(e.maxPixel) && count < e.conf.MaxCandidates; i++ {
		diff := int(e.maxPixel[i]) - int(e.avgPixel[i])
		if diff > 0 && uint8(diff) > uint8(k*int(e.stdPixel[i])) {
			e.candX[count] = i % w
			e.candY[count] = i / w
			count++
		}
	}
	return count
}

// publish stages the FF file, posts the JSON event and the file, and
// removes the staged copy. Returns whether the event was posted.
func (e *Engine) publish(b *ftp.Block, line hough.Line, x1, y1, x2, y2, lengthPx int) bool {
	hdr := e.hdrTpl.WithTimestamp(b.EndMS)
	name := hdr.Filename()
	path := filepath.Join(e.conf.FFTmpDir, name)

	if err := ffbin.Write(path, hdr, e.maxPixel, e.maxFrame, e.avgPixel, e.stdPixel); err != nil {
		log.Printf("detector: ff write failed: %v", err)
		return false
	}

	event := meteorEvent{
		CameraID:     e.hdrTpl.StationID,
		Type:         "meteor",
		TimestampMS:  b.EndMS,
		BlockStartMS: b.StartMS,
		Candidate: meteorCandidate{
			Rho:      int32(line.Rho),
			Theta:    uint16(line.Theta),
			X1:       int32(x1),
			Y1:       int32(y1),
			X2:       int32(x2),
			Y2:       int32(y2),
			LengthPx: uint32(lengthPx),
			Votes:    uint32(line.Votes),
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("detector: event encode failed: %v", err)
		return false
	}

	posted := true
	if err := e.client.PostJSON(payload); err != nil {
		log.Printf("detector: event post failed: %v", err)
		posted = false
	}
	if err := e.client.PostFF(path, name); err != nil {
		log.Printf("detector: ff post failed: %v", err)
	}
	os.Remove(path)
	return posted
}

// isqrtInt is a non-negative integer square root for small geometry
// values.
func isqrtInt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	x1 := (x + 1) / 2
	for x1 < x {
		x = x1
		x1 = (x + n/x) / 2
	}
	return x
}
