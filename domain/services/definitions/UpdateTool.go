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

package definitions

import (
	"context"
	"fmt"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"strings"

	"github.com/spf13/afero"
)

// UpdateTool runs the signature update tool against a data directory.
type UpdateTool struct {
	fs      afero.Fs
	runner  out.CommandRunner
	command string
	runAs   string
}

func NewUpdateTool(fs afero.Fs, runner out.CommandRunner, command string, runAs string) *UpdateTool {
	return &UpdateTool{fs: fs, runner: runner, command: command, runAs: runAs}
}

// EnsureConfig writes the tool config file when it does not exist yet. An existing file is kept as is.
func (t *UpdateTool) EnsureConfig(path string, lines ...string) error {
	exists, err := afero.Exists(t.fs, path)
	if err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to stat %s", path), err)
	}

	if exists {
		return nil
	}

	content := "\n" + strings.Join(lines, "\n") + "\n"
	if err := afero.WriteFile(t.fs, path, []byte(content), 0644); err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to write %s", path), err)
	}

	return nil
}

// Update runs the tool once. Any exit code other than zero is a DefinitionUpdateError.
func (t *UpdateTool) Update(ctx context.Context, configFile, dataDir string) error {
	if err := t.fs.MkdirAll(dataDir, 0755); err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to create %s", dataDir), err)
	}

	args := []string{"--config-file=" + configFile, "--stdout"}
	if t.runAs != "" {
		args = append(args, "-u", t.runAs)
	}
	args = append(args, "--datadir="+dataDir)

	result, err := t.runner.Run(ctx, out.Command{Name: t.command, Args: args})
	if err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to run %s", t.command), err)
	}

	if result.ExitCode != 0 {
		return entities.NewScanError(entities.DefinitionUpdateError,
			fmt.Sprintf("FreshClam exited with unexpected code: %d", result.ExitCode), nil)
	}

	return nil
}
