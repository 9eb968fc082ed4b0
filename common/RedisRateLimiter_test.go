/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package common

import (
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRateLimiterWithoutLimits(t *testing.T) {
	limiter := newRateLimiter(unreachableClient(), RateLimitConfig{Key: "definitions-mirror"})

	assert.True(t, limiter.IsRequestAllowed())
}

func TestRateLimiterFailsClosed(t *testing.T) {
	limiter := newRateLimiter(unreachableClient(), RateLimitConfig{Hour: 2, Key: "definitions-mirror"})

	assert.False(t, limiter.IsRequestAllowed())
}
