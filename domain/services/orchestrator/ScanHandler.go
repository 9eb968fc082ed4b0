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
)

// Handler adapts the Orchestrator to a pipeline stage. Failed invocations are returned as errors
// so the stage routes them to its cleanup channel.
type Handler struct {
	orchestrator *Orchestrator
	logger       logging.Logger
}

func NewHandler(orchestrator *Orchestrator, logger logging.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, request *entities.ScanRequest, w *entities.OutputWriter[entities.ScanOutcome]) error {
	verdict, err := h.orchestrator.Process(ctx, request.Event)
	if err != nil {
		return err
	}

	w.Write(ctx, &entities.ScanOutcome{Request: *request, Verdict: verdict})

	return nil
}

func (h *Handler) Name() string {
	return "Orchestrator Handler"
}
