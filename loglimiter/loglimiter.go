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

// Package loglimiter suppresses repeated log messages so a hot loop
// (e.g. a stuck worker dropping every block) cannot flood the journal.
package loglimiter

import (
	"fmt"
	"log"
	"time"
)

// New returns a LogLimiter that emits a given message at most once per
// interval. When a suppressed message finally gets through again, the
// number of suppressed repeats is appended.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
	}
}

type LogLimiter struct {
	interval   time.Duration
	nowFunc    func() time.Time
	lastEntry  string
	lastTime   time.Time
	suppressed int
}

func (l *LogLimiter) Printf(format string, v ...interface{}) {
	l.Print(fmt.Sprintf(format, v...))
}

func (l *LogLimiter) Print(s string) {
	now := l.nowFunc()
	if s == l.lastEntry && now.Sub(l.lastTime) < l.interval {
		l.suppressed++
		return
	}

	if l.suppressed > 0 && s == l.lastEntry {
		log.Printf("%s (%d repeats suppressed)", s, l.suppressed)
	} else {
		log.Print(s)
	}
	l.lastEntry = s
	l.lastTime = now
	l.suppressed = 0
}
