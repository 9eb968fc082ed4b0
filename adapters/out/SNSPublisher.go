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

package out

import (
	"context"
	"encoding/json"
	"fmt"
	"scan-sentinel/domain/entities"
	"scan-sentinel/pkg/awsutils"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

type topicPublisher interface {
	PublishToTopic(ctx context.Context, topicARN, message string) error
}

// SNSPublisher sends output and failure records, as JSON, to a topic.
type SNSPublisher struct {
	svc   topicPublisher
	topic string
}

func NewSNSPublisher(awsSession *session.Session, awsConfig *aws.Config, topic string) *SNSPublisher {
	svc := &awsutils.SNS{}
	svc.Init(awsSession, awsConfig)

	return &SNSPublisher{svc: svc, topic: topic}
}

func (s *SNSPublisher) Publish(ctx context.Context, verdict entities.ScanVerdict) error {
	message, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict. %w", err)
	}

	if err = s.svc.PublishToTopic(ctx, s.topic, string(message)); err != nil {
		return fmt.Errorf("failed to publish verdict to %s. %w", s.topic, err)
	}

	return nil
}
