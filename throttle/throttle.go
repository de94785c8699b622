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

// Package throttle rate-limits meteor publications. A burst of false
// positives (aircraft, satellites crossing all night, a failing sensor)
// would otherwise hammer the receiver with an upload every block.
package throttle

import (
	"time"

	"github.com/juju/ratelimit"
)

type ThrottlerConfig struct {
	ApplyThrottling bool          `yaml:"apply-throttling"`
	BucketSize      int64         `yaml:"bucket-size"`
	RefillInterval  time.Duration `yaml:"refill-interval"`
}

func DefaultThrottlerConfig() ThrottlerConfig {
	return ThrottlerConfig{
		ApplyThrottling: true,
		BucketSize:      10,
		RefillInterval:  time.Hour,
	}
}

// PublishLimiter is a token bucket over publications: each published
// detection consumes one token; tokens refill steadily so that at most
// BucketSize publications can happen per RefillInterval once the burst
// allowance is spent.
type PublishLimiter struct {
	bucket *ratelimit.Bucket
}

func NewPublishLimiter(conf ThrottlerConfig) *PublishLimiter {
	return NewPublishLimiterWithClock(conf, nil)
}

func NewPublishLimiterWithClock(conf ThrottlerConfig, clock ratelimit.Clock) *PublishLimiter {
	if !conf.ApplyThrottling {
		return nil
	}
	rate := float64(conf.BucketSize) / conf.RefillInterval.Seconds()
	return &PublishLimiter{
		bucket: ratelimit.NewBucketWithRateAndClock(rate, conf.BucketSize, clock),
	}
}

// TryPublish consumes one token if available. A nil limiter never
// throttles.
func (l *PublishLimiter) TryPublish() bool {
	if l == nil {
		return true
	}
	return l.bucket.TakeAvailable(1) == 1
}
