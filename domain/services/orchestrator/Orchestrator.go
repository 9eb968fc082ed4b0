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
	"fmt"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const (
	directoryMessage = "Key denotes a directory, nothing to scan"
	skipMessage      = "Object is marked SKIP, not scanned"
	deletedMessage   = "Object no longer exists, not scanned"
)

// Orchestrator runs one event through status check, fetch, expansion, definitions refresh,
// scan and verdict tagging. Every fatal error goes through the FailureReporter.
type Orchestrator struct {
	validate     *validator.Validate
	status       StatusStore
	workspaces   WorkspaceManager
	fetcher      Fetcher
	expander     Expander
	definitions  DefinitionUpdater
	scanner      Scanner
	reporter     *FailureReporter
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewOrchestrator(status StatusStore, workspaces WorkspaceManager, fetcher Fetcher, expander Expander,
	definitions DefinitionUpdater, scanner Scanner, metricsScope tally.Scope, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		validate:     validator.New(),
		status:       status,
		workspaces:   workspaces,
		fetcher:      fetcher,
		expander:     expander,
		definitions:  definitions,
		scanner:      scanner,
		reporter:     NewFailureReporter(status, workspaces, metricsScope, logger),
		metricsScope: metricsScope,
		logger:       logger,
	}
}

// Process returns the output record of the event. A non-nil error is always an
// *entities.InvocationError carrying the failure record.
func (o *Orchestrator) Process(ctx context.Context, event entities.ScanEvent) (verdict entities.ScanVerdict, err error) {
	if event.RequestID == "" {
		event.RequestID = uuid.New().String()
	}

	span, ctx := tracer.StartSpanFromContext(ctx, "scan.invocation",
		tracer.Tag("bucket", event.Bucket), tracer.Tag("key", event.Key), tracer.Tag("request_id", event.RequestID))
	defer func() {
		span.SetTag("status", verdict.Status.String())
		span.Finish(tracer.WithError(err))
	}()

	if validationErr := o.validate.Struct(event); validationErr != nil {
		cause := entities.NewScanError(entities.StorageAccessError, fmt.Sprintf("invalid event: %v", validationErr), validationErr)

		// An event that still names an object gets its ERROR tag like any other failure.
		if event.Bucket != "" && event.Key != "" {
			invocationErr := o.reporter.Report(ctx, event, nil, cause)
			return invocationErr.Record, invocationErr
		}

		invocationErr := o.reporter.Reject(event, cause)
		return invocationErr.Record, invocationErr
	}

	if event.IsDirectory() {
		return o.finish(event, entities.StatusSkip, directoryMessage), nil
	}

	current, err := o.status.Read(ctx, event.Ref())
	if err != nil {
		o.logger.Warnw("failed to read current status, scanning anyway", "bucket", event.Bucket, "key", event.Key,
			"version_id", event.VersionID, "request_id", event.RequestID, "error", err)
		current = entities.StatusNone
	}

	switch current {
	case entities.StatusSkip:
		return o.finish(event, entities.StatusSkip, skipMessage), nil
	case entities.StatusDeleted:
		return o.finish(event, entities.StatusDeleted, deletedMessage), nil
	}

	return o.run(ctx, event)
}

func (o *Orchestrator) run(ctx context.Context, event entities.ScanEvent) (verdict entities.ScanVerdict, err error) {
	var allocated *entities.Workspace

	failed := func(ws *entities.Workspace, cause error) (entities.ScanVerdict, error) {
		invocationErr := o.reporter.Report(ctx, event, ws, cause)
		return invocationErr.Record, invocationErr
	}

	defer func() {
		if r := recover(); r != nil {
			verdict, err = failed(allocated, fmt.Errorf("panic during scan: %v", r))
		}
	}()

	if err := o.status.Write(ctx, event.Ref(), entities.StatusInProgress); err != nil {
		return failed(nil, err)
	}

	ws, err := o.workspaces.Allocate(event.RequestID)
	if err != nil {
		return failed(nil, err)
	}
	allocated = &ws

	payload, err := o.fetcher.Fetch(ctx, ws, event)
	if err != nil {
		return failed(&ws, err)
	}

	if err := o.expander.Expand(ctx, ws, event, payload); err != nil {
		return failed(&ws, err)
	}

	if err := o.definitions.Refresh(ctx); err != nil {
		return failed(&ws, err)
	}

	outcome, err := o.scanner.Scan(ctx, ws, o.definitions.Dir())
	if err != nil {
		return failed(&ws, err)
	}

	if err := o.status.Write(ctx, event.Ref(), outcome.Status); err != nil {
		return failed(&ws, err)
	}

	if err := o.workspaces.Destroy(ws); err != nil {
		o.logger.Errorw("failed to purge workspace", "request_id", event.RequestID, "error", err)
	}

	return o.finish(event, outcome.Status, outcome.Message), nil
}

func (o *Orchestrator) finish(event entities.ScanEvent, status entities.ObjectStatus, message string) entities.ScanVerdict {
	o.metricsScope.Tagged(map[string]string{"status": status.String()}).Counter("invocation").Inc(1)
	o.logger.Infow("scan invocation finished", "bucket", event.Bucket, "key", event.Key, "version_id", event.VersionID,
		"request_id", event.RequestID, "status", status)

	return entities.NewScanVerdict(event, status, message)
}
