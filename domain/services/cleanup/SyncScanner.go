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

package cleanup

import (
	"context"
	"scan-sentinel/domain/entities"
)

type ObjectScanner interface {
	Process(ctx context.Context, event entities.ScanEvent) (entities.ScanVerdict, error)
}

// SyncScanner serves requests that do not come through the stages. The outcome still goes to the
// cleanup jobs before it is returned to the caller.
type SyncScanner struct {
	scanner ObjectScanner
	handler *Handler
}

func NewSyncScanner(scanner ObjectScanner, handler *Handler) *SyncScanner {
	return &SyncScanner{scanner: scanner, handler: handler}
}

func (s *SyncScanner) Process(ctx context.Context, event entities.ScanEvent) (entities.ScanVerdict, error) {
	verdict, err := s.scanner.Process(ctx, event)

	outcome := &entities.ScanOutcome{Request: entities.ScanRequest{Event: event}, Verdict: verdict}
	if err != nil {
		outcome.Verdict = failureRecord(event, err)
		outcome.Failed = true
	}

	s.handler.Clean(ctx, outcome)

	return verdict, err
}
