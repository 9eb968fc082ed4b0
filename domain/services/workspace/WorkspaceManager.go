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

package workspace

import (
	"fmt"
	"path/filepath"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"
	"strings"

	"github.com/spf13/afero"
)

const (
	defaultDirPermission = 0755
	payloadDir           = "payload"
	tempDir              = "tmp"
)

// Manager hands out one scratch tree per invocation below the mount path.
// Trees are namespaced by request id so concurrent invocations never share files.
type Manager struct {
	fs        afero.Fs
	mountPath string
	logger    logging.Logger
}

func NewManager(fs afero.Fs, mountPath string, logger logging.Logger) *Manager {
	return &Manager{fs: fs, mountPath: filepath.Clean(mountPath), logger: logger}
}

func (m *Manager) Allocate(requestID string) (entities.Workspace, error) {
	if !validRequestID(requestID) {
		return entities.Workspace{}, entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("invalid request id %q", requestID), nil)
	}

	root := filepath.Join(m.mountPath, requestID)
	ws := entities.Workspace{
		ID:         requestID,
		Root:       root,
		PayloadDir: filepath.Join(root, payloadDir),
		TempDir:    filepath.Join(root, tempDir),
	}

	for _, dir := range []string{ws.PayloadDir, ws.TempDir} {
		if err := m.EnsureDir(dir); err != nil {
			// The caller never sees a partial tree, so it is removed here.
			if removeErr := m.fs.RemoveAll(root); removeErr != nil {
				m.logger.Errorw("failed to remove partial workspace", "request_id", requestID, "root", root, "error", removeErr)
			}
			return entities.Workspace{}, err
		}
	}

	m.logger.Debugw("workspace allocated", "request_id", requestID, "root", root)

	return ws, nil
}

// EnsureDir creates dir and its parents. It is a no-op when dir already exists.
func (m *Manager) EnsureDir(dir string) error {
	if err := m.fs.MkdirAll(dir, defaultDirPermission); err != nil {
		return entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("failed to create directory %s", dir), err)
	}

	return nil
}

// Destroy removes the whole tree. Destroying an already removed workspace is not an error.
func (m *Manager) Destroy(ws entities.Workspace) error {
	if ws.Root == "" {
		return nil
	}

	if err := m.fs.RemoveAll(ws.Root); err != nil {
		return entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("failed to remove workspace %s", ws.Root), err)
	}

	m.logger.Debugw("workspace destroyed", "request_id", ws.ID)

	return nil
}

func validRequestID(requestID string) bool {
	if requestID == "" || requestID == "." || requestID == ".." {
		return false
	}

	return !strings.ContainsAny(requestID, `/\`)
}
