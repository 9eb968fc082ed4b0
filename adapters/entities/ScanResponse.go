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

type ScanResponse struct {
	Source      string `json:"source"`
	InputBucket string `json:"input_bucket"`
	InputKey    string `json:"input_key"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	VersionID   string `json:"version_id,omitempty"`
}

func MapToScanResponse(verdict entities.ScanVerdict) *ScanResponse {
	return &ScanResponse{
		Source:      verdict.Source,
		InputBucket: verdict.InputBucket,
		InputKey:    verdict.InputKey,
		Status:      verdict.Status.String(),
		Message:     verdict.Message,
		VersionID:   verdict.VersionID,
	}
}
