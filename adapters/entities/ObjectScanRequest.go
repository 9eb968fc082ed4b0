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

import "scan-sentinel/domain/entities"

type ObjectScanRequest struct {
	Bucket    string `json:"bucket" validate:"required"`
	Key       string `json:"key" validate:"required"`
	Size      int64  `json:"size" validate:"gte=0"`
	VersionID string `json:"versionId"`
}

// ScanEvent keeps the key as sent, HTTP callers are expected to send it decoded.
func (r ObjectScanRequest) ScanEvent(requestID string) entities.ScanEvent {
	return entities.ScanEvent{
		Bucket:    r.Bucket,
		Key:       r.Key,
		Size:      r.Size,
		VersionID: r.VersionID,
		RequestID: requestID,
	}
}
