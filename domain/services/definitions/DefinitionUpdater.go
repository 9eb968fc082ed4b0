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

package definitions

import (
	"context"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"
	"time"

	"github.com/uber-go/tally/v4"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshInterval = time.Hour

	refreshFlight = "definitions-refresh"
)

// Updater refreshes the local signature database from the private mirror, at most once per
// interval for every invocation sharing the same cache.
//
// Concurrent invocations that find the cache stale share a single run of the tool, since the tool
// locks its data dir and a second run would fail.
type Updater struct {
	group        singleflight.Group
	tool         *UpdateTool
	cache        *entities.DefinitionCache
	clock        out.Clock
	configFile   string
	mirrorURL    string
	interval     time.Duration
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewUpdater(tool *UpdateTool, cache *entities.DefinitionCache, clock out.Clock, configFile, mirrorURL string,
	interval time.Duration, metricsScope tally.Scope, logger logging.Logger) *Updater {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	return &Updater{
		tool:         tool,
		cache:        cache,
		clock:        clock,
		configFile:   configFile,
		mirrorURL:    mirrorURL,
		interval:     interval,
		metricsScope: metricsScope,
		logger:       logger,
	}
}

func (u *Updater) Dir() string {
	return u.cache.Dir
}

// Refresh runs the update tool unless the last successful refresh is younger than the interval.
// The cache timestamp only moves after a successful run.
func (u *Updater) Refresh(ctx context.Context) error {
	if u.fresh() {
		return nil
	}

	_, err, shared := u.group.Do(refreshFlight, func() (interface{}, error) {
		// A flight that just finished may already have refreshed the cache.
		if u.fresh() {
			return nil, nil
		}

		return nil, u.refresh(ctx)
	})
	if shared {
		u.logger.Debugw("joined a running definitions refresh", "dir", u.cache.Dir)
	}

	return err
}

func (u *Updater) fresh() bool {
	last := u.cache.LastRefresh()
	elapsed := u.clock.Now().Sub(last)

	if last.IsZero() || elapsed >= u.interval {
		return false
	}

	u.metricsScope.Counter("definitions_refresh_skipped").Inc(1)
	u.logger.Debugw("definitions are fresh, skipping refresh", "last_refresh", last, "elapsed", elapsed.String())

	return true
}

func (u *Updater) refresh(ctx context.Context) error {
	if err := u.tool.EnsureConfig(u.configFile, "PrivateMirror "+u.mirrorURL); err != nil {
		return err
	}

	if err := u.tool.Update(ctx, u.configFile, u.cache.Dir); err != nil {
		u.metricsScope.Tagged(map[string]string{"result": "failure"}).Counter("definitions_refresh").Inc(1)
		return err
	}

	u.cache.MarkRefreshed(u.clock.Now())
	u.metricsScope.Tagged(map[string]string{"result": "success"}).Counter("definitions_refresh").Inc(1)
	u.logger.Infow("definitions refreshed", "dir", u.cache.Dir, "mirror", u.mirrorURL)

	return nil
}
