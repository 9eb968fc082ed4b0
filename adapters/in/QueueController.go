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

package in

import (
	"context"
	"encoding/json"
	"fmt"
	adapterentities "scan-sentinel/adapters/entities"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
)

const (
	consumeCount     = "consume_count"
	rejectCount      = "reject_count"
	singleMessageInc = 1

	initialRetryInterval = 500 * time.Millisecond
	maxRetryInterval     = time.Minute
)

type MessageQueue interface {
	ReceiveMessageFromSQS(ctx context.Context, queueURL string) ([]*sqs.Message, error)
	DeleteMessage(ctx context.Context, queueURL, receiptHandle string) error
}

// QueueController turns S3 notifications delivered through SQS into scan requests. Every record of
// a message is an independent request, the message is acknowledged by the cleanup stage.
type QueueController struct {
	outputChannel chan *entities.ScanRequest

	sqsService MessageQueue
	queue      string
	retry      *backoff.ExponentialBackOff

	logger       logging.Logger
	metricsScope tally.Scope
}

func NewQueueController(queue string, outputChannel chan *entities.ScanRequest, sqsService MessageQueue, metricsScope tally.Scope, logger logging.Logger) *QueueController {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = initialRetryInterval
	retry.MaxInterval = maxRetryInterval
	retry.MaxElapsedTime = 0

	return &QueueController{
		queue:         queue,
		outputChannel: outputChannel,
		sqsService:    sqsService,
		retry:         retry,
		logger:        logger,
		metricsScope:  metricsScope,
	}
}

func (q *QueueController) AsyncScan(ctx context.Context) {
	if q.queue == "" {
		q.logger.Infow("Won't attempt to read SQS queue, because none was configured")
		return
	}

	q.logger.Infow("Start of async queue processing")

	for {
		select {
		case <-ctx.Done():
			q.logger.Infow("End of async queue processing")
			return

		default:
			messages, err := q.sqsService.ReceiveMessageFromSQS(ctx, q.queue)
			if err != nil {
				wait := q.retry.NextBackOff()
				q.logger.Errorw("failed to obtain scan request", "error", err, "retry_in", wait.String())

				select {
				case <-ctx.Done():
				case <-time.After(wait):
				}
				continue
			}

			q.retry.Reset()

			for _, m := range messages {
				q.submitMessage(ctx, m)
			}
		}
	}
}

func (q *QueueController) submitMessage(ctx context.Context, m *sqs.Message) {
	receiptHandle := aws.StringValue(m.ReceiptHandle)

	events, err := q.extractEvents(m)
	if err != nil {
		q.logger.Errorw("failed to extract events", "error", err, "message_id", aws.StringValue(m.MessageId))
		q.deleteMessage(ctx, receiptHandle)
		return
	}

	var created []adapterentities.S3Event
	for _, event := range events {
		if event.IsObjectCreated() {
			created = append(created, event)
		}
	}

	// Nothing to scan, e.g. s3:TestEvent or removal notifications.
	if len(created) == 0 {
		q.deleteMessage(ctx, receiptHandle)
		return
	}

	ack := entities.NewMessageAck(receiptHandle, len(created))
	for _, event := range created {
		q.submitSingleObjectForAnalysis(ctx, event, ack)
	}
}

func (q *QueueController) extractEvents(m *sqs.Message) ([]adapterentities.S3Event, error) {
	var notification adapterentities.SQSNotification

	// extract sqs message Body
	body := aws.StringValue(m.Body)
	err := json.Unmarshal([]byte(body), &notification)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal message. %w", err)
	}

	// extract events
	var events adapterentities.Events
	if err = json.Unmarshal([]byte(notification.Message), &events); err != nil {
		// S3 publishing straight to SQS has no SNS envelope
		err = json.Unmarshal([]byte(body), &events)
	}

	if err != nil {
		q.logger.Errorw("failed to unmarshal message.", "error", err, "message field", notification.Message)
		return nil, err
	}

	return events.Record, nil
}

func (q *QueueController) submitSingleObjectForAnalysis(ctx context.Context, record adapterentities.S3Event, ack *entities.MessageAck) {
	uniqueUUID, err := uuid.NewRandom()
	if err != nil {
		q.reject(record, ack, fmt.Errorf("failed to generate request id. %w", err))
		return
	}

	event, err := record.ScanEvent(uniqueUUID.String())
	if err != nil {
		q.reject(record, ack, err)
		return
	}

	q.logger.Debugw("Received new request", "region", record.AwsRegion, "bucket", event.Bucket, "key", event.Key,
		"version_id", event.VersionID, "size", event.Size, "request_id", event.RequestID)

	select {
	case q.outputChannel <- &entities.ScanRequest{Event: event, Ack: ack}:
		q.metricsScope.Counter(consumeCount).Inc(singleMessageInc)
	case <-ctx.Done():
		// The message stays in the queue and will be delivered again.
		ack.Done(true)
	}
}

// reject counts the record as failed, so the message is left for redelivery and ends in the DLQ.
func (q *QueueController) reject(record adapterentities.S3Event, ack *entities.MessageAck, err error) {
	q.logger.Errorw("Failed to build scan request", "error", err, "bucket", record.S3.Bucket.Name, "key", record.S3.Object.Key)
	q.metricsScope.Counter(rejectCount).Inc(singleMessageInc)
	ack.Done(true)
}

func (q *QueueController) deleteMessage(ctx context.Context, receiptHandle string) {
	if err := q.sqsService.DeleteMessage(ctx, q.queue, receiptHandle); err != nil {
		q.logger.Errorw("deleting message from sqs service failed", "error", err, "receipt_handle", receiptHandle)
	}
}
