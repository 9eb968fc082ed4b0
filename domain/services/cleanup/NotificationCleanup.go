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
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"
)

// PublishResult sends every output and failure record downstream.
type PublishResult struct {
	publisher out.ResultPublisher
	logger    logging.Logger
}

func NewPublishResult(publisher out.ResultPublisher, logger logging.Logger) PublishResult {
	return PublishResult{publisher: publisher, logger: logger}
}

func (p *PublishResult) Clean(ctx context.Context, outcome *entities.ScanOutcome) {
	if err := p.publisher.Publish(ctx, outcome.Verdict); err != nil {
		p.logger.Errorw("failed to publish scan result", "bucket", outcome.Verdict.InputBucket,
			"key", outcome.Verdict.InputKey, "status", outcome.Verdict.Status, "error", err)
	}
}

// AlertCleanup notifies humans about infected objects and failed scans.
type AlertCleanup struct {
	alerter out.Alerter
	logger  logging.Logger
}

func NewAlertCleanup(alerter out.Alerter, logger logging.Logger) AlertCleanup {
	return AlertCleanup{alerter: alerter, logger: logger}
}

func (a *AlertCleanup) Clean(ctx context.Context, outcome *entities.ScanOutcome) {
	status := outcome.Verdict.Status
	if status != entities.StatusInfected && status != entities.StatusError {
		return
	}

	if err := a.alerter.Alert(ctx, outcome.Verdict); err != nil {
		a.logger.Errorw("failed to send alert", "bucket", outcome.Verdict.InputBucket,
			"key", outcome.Verdict.InputKey, "status", status, "error", err)
	}
}
