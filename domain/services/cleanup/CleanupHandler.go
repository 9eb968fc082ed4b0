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
	"errors"
	"reflect"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/services/stages"
	"scan-sentinel/logging"
	"strings"
)

// Job runs once per finished invocation, failed or not.
type Job interface {
	Clean(cxt context.Context, outcome *entities.ScanOutcome)
}

type Handler struct {
	jobs   []Job
	logger logging.Logger
}

func NewCleanupHandler(cleanupJobs []Job, logger logging.Logger) *Handler {
	return &Handler{
		logger: logger,
		jobs:   cleanupJobs,
	}
}

func (c *Handler) Handle(ctx context.Context, outcome *entities.ScanOutcome, w *entities.OutputWriter[entities.Empty]) error {
	c.Clean(ctx, outcome)
	return nil
}

func (c *Handler) Clean(ctx context.Context, outcome *entities.ScanOutcome) {
	for _, job := range c.jobs {
		c.logger.Debugw("Running job", "job", reflect.ValueOf(job).Type())
		job.Clean(ctx, outcome)
	}
}

func (c *Handler) Name() string {
	var jobs []string
	for _, job := range c.jobs {
		jobs = append(jobs, reflect.TypeOf(job).Elem().Name())
	}

	return "Cleanup Handler with jobs: " + strings.Join(jobs, ", ")
}

// FailureHandler turns the cleanup channel of the scan stage into failed outcomes for the same jobs.
type FailureHandler struct {
	handler *Handler
	logger  logging.Logger
}

func NewFailureHandler(handler *Handler, logger logging.Logger) *FailureHandler {
	return &FailureHandler{handler: handler, logger: logger}
}

func (f *FailureHandler) Handle(ctx context.Context, request *stages.Cleanup[entities.ScanRequest], w *entities.OutputWriter[entities.Empty]) error {
	if request.Request == nil {
		f.logger.Errorw("Cleanup without request", "error", request.Error)
		return nil
	}

	outcome := &entities.ScanOutcome{
		Request: *request.Request,
		Verdict: failureRecord(request.Request.Event, request.Error),
		Failed:  true,
	}
	f.handler.Clean(ctx, outcome)

	return nil
}

func (f *FailureHandler) Name() string {
	return "Failure " + f.handler.Name()
}

func failureRecord(event entities.ScanEvent, err error) entities.ScanVerdict {
	var invocationErr *entities.InvocationError
	if errors.As(err, &invocationErr) {
		return invocationErr.Record
	}

	if err == nil {
		err = errors.New("unknown failure")
	}

	return entities.NewScanVerdict(event, entities.StatusError, entities.FailureMessage(err))
}
