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

package mocks

import (
	"context"
	"errors"
	"scan-sentinel/domain/entities"
	"sync"
)

// Coding because gomock still does not support generics properly. Even a derived interface embedding the generic one didn't work.
type SpyHandler struct {
	mu      sync.Mutex
	Counter map[string]int
	// Fail makes Handle return an error for matching keys, Panic makes it panic.
	Fail  map[string]bool
	Panic map[string]bool
}

func NewSpyHandler() *SpyHandler {
	return &SpyHandler{Counter: make(map[string]int), Fail: make(map[string]bool), Panic: make(map[string]bool)}
}

func (m *SpyHandler) Handle(ctx context.Context, request *entities.ScanRequest, w *entities.OutputWriter[entities.ScanRequest]) error {
	m.mu.Lock()
	m.Counter["Handle"] += 1
	fail, panics := m.Fail[request.Event.Key], m.Panic[request.Event.Key]
	m.mu.Unlock()

	if panics {
		panic("spy handler panic")
	}

	if fail {
		return errors.New("spy handler failure")
	}

	w.Write(ctx, request)

	return nil
}

func (m *SpyHandler) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Counter["Name"] += 1
	return "SpyHandler"
}

func (m *SpyHandler) Count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Counter[method]
}
