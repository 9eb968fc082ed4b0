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
	"path/filepath"
	"strings"
)

// Workspace is the scratch tree owned by a single invocation.
type Workspace struct {
	ID         string
	Root       string
	PayloadDir string
	TempDir    string
}

// PayloadPath maps an object key below the payload directory, keeping its path structure.
// Keys that would escape the payload directory are rejected.
func (w Workspace) PayloadPath(key string) (string, error) {
	path := filepath.Join(w.PayloadDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, w.PayloadDir+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the workspace", key)
	}

	return path, nil
}
