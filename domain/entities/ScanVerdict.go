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
	"encoding/json"
	"fmt"
)

const (
	VerdictSource = "scan-pipeline"
	UpdateSource  = "scan-pipeline-update"
)

// ScanVerdict is the output record of one invocation. A failure record has the same shape
// with Status set to StatusError.
type ScanVerdict struct {
	Source      string       `json:"source"`
	InputBucket string       `json:"input_bucket"`
	InputKey    string       `json:"input_key"`
	Status      ObjectStatus `json:"status"`
	Message     string       `json:"message"`
	VersionID   string       `json:"version_id,omitempty"`
}

func NewScanVerdict(event ScanEvent, status ObjectStatus, message string) ScanVerdict {
	return ScanVerdict{
		Source:      VerdictSource,
		InputBucket: event.Bucket,
		InputKey:    event.Key,
		Status:      status,
		Message:     message,
		VersionID:   event.VersionID,
	}
}

// ScanOutcome is handed to the post-invocation jobs.
type ScanOutcome struct {
	Request ScanRequest
	Verdict ScanVerdict
	Failed  bool
}

// InvocationError is the terminal failure of one invocation. It carries the failure record
// that was produced for the object.
type InvocationError struct {
	Record ScanVerdict
	Err    error
}

func (e *InvocationError) Error() string {
	data, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Sprintf("scan of s3://%s/%s failed: %s", e.Record.InputBucket, e.Record.InputKey, e.Record.Message)
	}

	return string(data)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// UpdateFailure is reported when the definitions mirror could not be refreshed.
type UpdateFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}
