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
	"errors"
	"fmt"
)

type ErrorKind string

const (
	StorageAccessError    ErrorKind = "StorageAccessError"
	ArchiveError          ErrorKind = "ArchiveError"
	FileTooLargeError     ErrorKind = "FileTooLargeError"
	DefinitionUpdateError ErrorKind = "DefinitionUpdateError"
	EngineError           ErrorKind = "EngineError"
	WorkspaceError        ErrorKind = "WorkspaceError"
)

// ErrObjectNotFound is returned by storage adapters when the object or version does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Sentinels for errors.Is. A ScanError matches the sentinel of its kind.
var (
	ErrStorageAccess    = &ScanError{Kind: StorageAccessError}
	ErrArchive          = &ScanError{Kind: ArchiveError}
	ErrFileTooLarge     = &ScanError{Kind: FileTooLargeError}
	ErrDefinitionUpdate = &ScanError{Kind: DefinitionUpdateError}
	ErrEngine           = &ScanError{Kind: EngineError}
	ErrWorkspace        = &ScanError{Kind: WorkspaceError}
)

// ScanError is a fatal stage failure. Message is what ends up in the failure record.
type ScanError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewScanError(kind ErrorKind, message string, err error) *ScanError {
	return &ScanError{Kind: kind, Message: message, Err: err}
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func (e *ScanError) Is(target error) bool {
	t, ok := target.(*ScanError)
	if !ok {
		return false
	}

	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first ScanError in the chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Kind
	}

	return ""
}

// FailureMessage is the human readable message stored in the failure record.
func FailureMessage(err error) string {
	var scanErr *ScanError
	if errors.As(err, &scanErr) && scanErr.Message != "" {
		return scanErr.Message
	}

	return err.Error()
}
