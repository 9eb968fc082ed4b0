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

import "strings"

// ObjectRef addresses one object, or one version of it when VersionID is set.
type ObjectRef struct {
	Bucket    string
	Key       string
	VersionID string
}

type Tag struct {
	Key   string
	Value string
}

// ScanEvent is one storage notification record. Key is already url-decoded.
type ScanEvent struct {
	Bucket    string `validate:"required"`
	Key       string `validate:"required"`
	Size      int64  `validate:"gte=0"`
	VersionID string
	RequestID string
}

// IsDirectory reports whether the key is a pseudo-directory marker.
func (e ScanEvent) IsDirectory() bool {
	return strings.HasSuffix(e.Key, "/")
}

func (e ScanEvent) Ref() ObjectRef {
	return ObjectRef{Bucket: e.Bucket, Key: e.Key, VersionID: e.VersionID}
}
