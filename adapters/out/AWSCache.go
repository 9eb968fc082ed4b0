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

package out

import (
	"fmt"
	"scan-sentinel/pkg/awsutils"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// AWSCache is the Elasticache backed lock holder. Locks are tracked per key so they can be released by name.
type AWSCache struct {
	mutex       sync.Mutex
	locks       map[string]*redislock.Lock
	elasticache awsutils.Elasticache
}

func NewCache(url, password string, useTLS bool) *AWSCache {
	elasticache := awsutils.Elasticache{}
	elasticache.InitRedis(url, password, useTLS)

	return &AWSCache{
		elasticache: elasticache,
		locks:       make(map[string]*redislock.Lock),
	}
}

func (a *AWSCache) Set(key string, value any, expiration time.Duration) error {
	return a.elasticache.SetKey(key, value, expiration)
}

func (a *AWSCache) Lock(key string, duration time.Duration) error {
	lock, err := a.elasticache.Lock(key, duration)
	if err != nil {
		return err
	}

	a.mutex.Lock()
	a.locks[key] = lock
	a.mutex.Unlock()

	return nil
}

func (a *AWSCache) Unlock(key string) error {
	a.mutex.Lock()
	lock, ok := a.locks[key]
	delete(a.locks, key)
	a.mutex.Unlock()

	if !ok {
		return fmt.Errorf("lock not found. key %s", key)
	}

	return a.elasticache.Unlock(lock)
}
