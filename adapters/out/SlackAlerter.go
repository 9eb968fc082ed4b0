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
	"fmt"
	"net/http"
	"scan-sentinel/domain/entities"
	"time"

	"github.com/slack-go/slack"
)

const (
	slackUsername = "scan-sentinel"
	slackTimeout  = 10 * time.Second
	dangerColor   = "danger"
	warningColor  = "warning"
)

// SlackAlerter posts infected and failed verdicts to a channel webhook.
type SlackAlerter struct {
	webhook   string
	channelID string
	client    *http.Client
}

func NewSlackAlerter(webhook, channelID string) *SlackAlerter {
	return &SlackAlerter{webhook: webhook, channelID: channelID, client: &http.Client{Timeout: slackTimeout}}
}

func (s *SlackAlerter) Alert(ctx context.Context, verdict entities.ScanVerdict) error {
	msg := s.buildMessage(verdict)

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhook, s.client, &msg); err != nil {
		return fmt.Errorf("cant send message to slack. %w", err)
	}

	return nil
}

func (s *SlackAlerter) buildMessage(verdict entities.ScanVerdict) slack.WebhookMessage {
	color := warningColor
	if verdict.Status == entities.StatusInfected {
		color = dangerColor
	}

	fields := []slack.AttachmentField{
		{Title: "Bucket", Value: verdict.InputBucket, Short: true},
		{Title: "Status", Value: verdict.Status.String(), Short: true},
		{Title: "Key", Value: verdict.InputKey},
	}

	if verdict.VersionID != "" {
		fields = append(fields, slack.AttachmentField{Title: "Version", Value: verdict.VersionID, Short: true})
	}

	if verdict.Message != "" {
		fields = append(fields, slack.AttachmentField{Title: "Message", Value: verdict.Message})
	}

	return slack.WebhookMessage{
		Username: slackUsername,
		Channel:  s.channelID,
		Text:     fmt.Sprintf("Object s3://%s/%s is %s", verdict.InputBucket, verdict.InputKey, verdict.Status),
		Attachments: []slack.Attachment{
			{Color: color, Fields: fields},
		},
	}
}
