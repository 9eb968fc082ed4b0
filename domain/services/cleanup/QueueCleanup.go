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
	"scan-sentinel/logging"
)

type MessageDeleter interface {
	DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error
}

// QueueCleanup deletes the queue message once all of its records succeeded. A message with a
// failed record is left in the queue for redelivery.
type QueueCleanup struct {
	queue      string
	sqsService MessageDeleter
	logger     logging.Logger
}

func NewQueueCleanup(queue string, sqsService MessageDeleter, logger logging.Logger) QueueCleanup {
	return QueueCleanup{logger: logger, queue: queue, sqsService: sqsService}
}

func (q *QueueCleanup) Clean(ctx context.Context, outcome *entities.ScanOutcome) {
	ack := outcome.Request.Ack
	if ack == nil || ack.ReceiptHandle == "" {
		return
	}

	if !ack.Done(outcome.Failed) {
		return
	}

	q.logger.Debugw("Deleting message", "request_id", outcome.Request.Event.RequestID)

	if err := q.sqsService.DeleteMessage(ctx, q.queue, ack.ReceiptHandle); err != nil {
		q.logger.Errorw("failed to delete message from sqs service", "error", err)
	}
}
