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

package entities

import (
	"fmt"
	"net/url"
	"scan-sentinel/domain/entities"
	"strings"
)

const objectCreatedPrefix = "ObjectCreated:"

// SQSNotification is the SNS envelope around the S3 notification.
type SQSNotification struct {
	Message string `json:"Message"`
}

type Events struct {
	Record []S3Event `json:"Records"`
}

type S3Event struct {
	AwsRegion string `json:"awsRegion"`
	EventName string `json:"eventName"`
	S3        S3     `json:"s3"`
}

type S3 struct {
	Bucket Bucket `json:"bucket"`
	Object Object `json:"object"`
}

type Bucket struct {
	Name string `json:"name"`
}

type Object struct {
	Key       string `json:"key"`
	Size      int64  `json:"size"`
	VersionID string `json:"versionId,omitempty"`
}

func (e S3Event) IsObjectCreated() bool {
	return strings.HasPrefix(e.EventName, objectCreatedPrefix)
}

// ScanEvent decodes the record key, which S3 sends form encoded ('+' for spaces).
func (e S3Event) ScanEvent(requestID string) (entities.ScanEvent, error) {
	key, err := url.QueryUnescape(e.S3.Object.Key)
	if err != nil {
		return entities.ScanEvent{}, fmt.Errorf("failed to decode key %q. %w", e.S3.Object.Key, err)
	}

	return entities.ScanEvent{
		Bucket:    e.S3.Bucket.Name,
		Key:       key,
		Size:      e.S3.Object.Size,
		VersionID: e.S3.Object.VersionID,
		RequestID: requestID,
	}, nil
}
