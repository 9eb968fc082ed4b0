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

package orchestrator

import (
	"context"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/services/scan"
)

type StatusStore interface {
	Read(ctx context.Context, ref entities.ObjectRef) (entities.ObjectStatus, error)
	Write(ctx context.Context, ref entities.ObjectRef, status entities.ObjectStatus) error
}

type WorkspaceManager interface {
	Allocate(requestID string) (entities.Workspace, error)
	Destroy(ws entities.Workspace) error
}

type Fetcher interface {
	Fetch(ctx context.Context, ws entities.Workspace, event entities.ScanEvent) (string, error)
}

type Expander interface {
	Expand(ctx context.Context, ws entities.Workspace, event entities.ScanEvent, archivePath string) error
}

type DefinitionUpdater interface {
	Refresh(ctx context.Context) error
	Dir() string
}

type Scanner interface {
	Scan(ctx context.Context, ws entities.Workspace, definitionsDir string) (scan.Outcome, error)
}
