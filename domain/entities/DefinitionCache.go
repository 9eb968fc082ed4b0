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

package entities

import (
	"sync/atomic"
	"time"
)

// DefinitionCache describes the local signature database. It lives as long as the process and is
// shared by every invocation running in it. The refresh timestamp never moves backwards.
type DefinitionCache struct {
	Dir         string
	lastRefresh atomic.Int64
}

func NewDefinitionCache(dir string) *DefinitionCache {
	return &DefinitionCache{Dir: dir}
}

// LastRefresh returns the zero time until the first successful refresh.
func (c *DefinitionCache) LastRefresh() time.Time {
	nanos := c.lastRefresh.Load()
	if nanos == 0 {
		return time.Time{}
	}

	return time.Unix(0, nanos)
}

// MarkRefreshed advances the refresh timestamp. Older timestamps are ignored.
func (c *DefinitionCache) MarkRefreshed(at time.Time) {
	next := at.UnixNano()

	for {
		current := c.lastRefresh.Load()
		if next <= current {
			return
		}

		if c.lastRefresh.CompareAndSwap(current, next) {
			return
		}
	}
}
