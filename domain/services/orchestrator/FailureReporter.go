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

package orchestrator

import (
	"context"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"

	"github.com/uber-go/tally/v4"
)

// FailureReporter is the single exit for every fatal condition of an invocation.
type FailureReporter struct {
	status       StatusStore
	workspaces   WorkspaceManager
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewFailureReporter(status StatusStore, workspaces WorkspaceManager, metricsScope tally.Scope, logger logging.Logger) *FailureReporter {
	return &FailureReporter{status: status, workspaces: workspaces, metricsScope: metricsScope, logger: logger}
}

// Report forces the object to ERROR, purges the workspace when one was allocated and returns the
// failure record as the terminal error of the invocation. The ERROR write happens even when an
// earlier status write failed.
func (r *FailureReporter) Report(ctx context.Context, event entities.ScanEvent, ws *entities.Workspace, cause error) *entities.InvocationError {
	record := entities.NewScanVerdict(event, entities.StatusError, entities.FailureMessage(cause))

	if err := r.status.Write(ctx, event.Ref(), entities.StatusError); err != nil {
		r.logger.Errorw("failed to tag object as ERROR", "bucket", event.Bucket, "key", event.Key,
			"version_id", event.VersionID, "request_id", event.RequestID, "error", err)
	}

	if ws != nil {
		if err := r.workspaces.Destroy(*ws); err != nil {
			r.logger.Errorw("failed to purge workspace", "request_id", event.RequestID, "error", err)
		}
	}

	return r.raise(event, record, cause)
}

// Reject fails an event that cannot be addressed. Nothing is written to storage.
func (r *FailureReporter) Reject(event entities.ScanEvent, cause error) *entities.InvocationError {
	record := entities.NewScanVerdict(event, entities.StatusError, entities.FailureMessage(cause))

	return r.raise(event, record, cause)
}

func (r *FailureReporter) raise(event entities.ScanEvent, record entities.ScanVerdict, cause error) *entities.InvocationError {
	kind := string(entities.KindOf(cause))
	if kind == "" {
		kind = "Unknown"
	}

	r.metricsScope.Tagged(map[string]string{"kind": kind}).Counter("invocation_failure").Inc(1)
	r.logger.Errorw("scan invocation failed", "bucket", event.Bucket, "key", event.Key, "version_id", event.VersionID,
		"request_id", event.RequestID, "kind", kind, "message", record.Message, "error", cause)

	return &entities.InvocationError{Record: record, Err: cause}
}
