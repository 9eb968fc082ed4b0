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

// ObjectStatus is the value carried by the scan-status tag of an object.
type ObjectStatus string

const (
	// StatusNone means the object carries no scan-status tag yet.
	StatusNone       ObjectStatus = ""
	StatusInProgress ObjectStatus = "IN_PROGRESS"
	StatusClean      ObjectStatus = "CLEAN"
	StatusInfected   ObjectStatus = "INFECTED"
	StatusError      ObjectStatus = "ERROR"

	// StatusSkip is set by operators to exclude an object from scanning. It is only ever read.
	StatusSkip ObjectStatus = "SKIP"

	// StatusDeleted is never written as a tag. It is reported when the object is gone at read time.
	StatusDeleted ObjectStatus = "DELETED"
)

func (s ObjectStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status ends an invocation without a scan.
func (s ObjectStatus) IsTerminal() bool {
	return s == StatusSkip || s == StatusDeleted
}
