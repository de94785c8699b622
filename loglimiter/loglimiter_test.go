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

package loglimiter

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureLog(fn func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(orig)
		log.SetFlags(flags)
	}()
	fn()
	return buf.String()
}

func newTestLimiter(interval time.Duration) (*LogLimiter, *time.Time) {
	now := time.Unix(1000, 0)
	limiter := New(interval)
	limiter.nowFunc = func() time.Time { return now }
	return limiter, &now
}

func TestRepeatedMessageIsSuppressed(t *testing.T) {
	limiter, _ := newTestLimiter(time.Minute)

	out := captureLog(func() {
		limiter.Print("block dropped")
		limiter.Print("block dropped")
		limiter.Print("block dropped")
	})
	assert.Equal(t, 1, strings.Count(out, "block dropped"))
}

func TestDifferentMessagePassesThrough(t *testing.T) {
	limiter, _ := newTestLimiter(time.Minute)

	out := captureLog(func() {
		limiter.Print("block dropped")
		limiter.Print("stack dropped")
	})
	assert.Contains(t, out, "block dropped")
	assert.Contains(t, out, "stack dropped")
}

func TestMessageRepeatsAfterInterval(t *testing.T) {
	limiter, now := newTestLimiter(time.Minute)

	out := captureLog(func() {
		limiter.Print("block dropped")
		limiter.Print("block dropped")
		limiter.Print("block dropped")
		*now = now.Add(2 * time.Minute)
		limiter.Print("block dropped")
	})
	assert.Equal(t, 2, strings.Count(out, "block dropped"))
	assert.Contains(t, out, "(2 repeats suppressed)")
}

func TestPrintfFormats(t *testing.T) {
	limiter, _ := newTestLimiter(time.Minute)

	out := captureLog(func() {
		limiter.Printf("dropping stack %d", 7)
	})
	assert.Contains(t, out, "dropping stack 7")
}
