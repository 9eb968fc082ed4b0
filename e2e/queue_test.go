//go:build e2e

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

package e2e

import (
	"context"
	adaptersin "scan-sentinel/adapters/in"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/services/cleanup"
	"scan-sentinel/logging"
	"scan-sentinel/pkg/awsutils"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/uber-go/tally/v4"
)

func (suite *E2E) TestQueueNotificationIsAcknowledged() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqsService := &awsutils.SQS{}
	sqsService.Init(suite.session, nil)

	output := make(chan *entities.ScanRequest)
	controller := adaptersin.NewQueueController(suite.queueURL, output, sqsService, tally.NoopScope, logging.NewDiscardLog())
	go controller.AsyncScan(ctx)

	suite.uploadObject(ctx, "incoming/my report (1).pdf", []byte("%PDF-1.4"), "")

	var request *entities.ScanRequest
	select {
	case request = <-output:
	case <-time.After(time.Minute):
		suite.FailNow("no scan request received")
	}

	suite.Equal(suite.bucketName, request.Event.Bucket)
	suite.Equal("incoming/my report (1).pdf", request.Event.Key)
	suite.Equal(int64(8), request.Event.Size)
	suite.NotEmpty(request.Event.RequestID)

	queueCleanup := cleanup.NewQueueCleanup(suite.queueURL, sqsService, logging.NewDiscardLog())
	cleanupHandler := cleanup.NewCleanupHandler([]cleanup.Job{&queueCleanup}, logging.NewDiscardLog())
	cleanupHandler.Clean(ctx, &entities.ScanOutcome{
		Request: *request,
		Verdict: entities.NewScanVerdict(request.Event, entities.StatusClean, ""),
	})
	cancel()

	attributes, err := suite.sqsClient.GetQueueAttributes(context.Background(), &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(suite.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessagesNotVisible},
	})
	suite.Require().NoError(err)
	suite.Equal("0", attributes.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessagesNotVisible)])
}
