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

package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/fileutils"
	"scan-sentinel/logging"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

const maxToolOutput = 2048

// ArchiveExpander unpacks objects the scan engine cannot take whole. It only acts when the
// size declared by the event is above the engine limit.
type ArchiveExpander struct {
	fs       afero.Fs
	runner   out.CommandRunner
	command  string
	maxBytes int64
	logger   logging.Logger
}

func NewArchiveExpander(fs afero.Fs, runner out.CommandRunner, command string, maxBytes int64, logger logging.Logger) *ArchiveExpander {
	return &ArchiveExpander{fs: fs, runner: runner, command: command, maxBytes: maxBytes, logger: logger}
}

func (a *ArchiveExpander) Expand(ctx context.Context, ws entities.Workspace, event entities.ScanEvent, archivePath string) error {
	if event.Size <= a.maxBytes {
		return nil
	}

	fileType := a.detect(archivePath)
	a.logger.Infow("expanding archive", "bucket", event.Bucket, "key", event.Key, "size", event.Size, "type", fileType.String())

	result, err := a.runner.Run(ctx, out.Command{
		Name: a.command,
		Args: []string{"x", "-y", archivePath, "-o" + ws.PayloadDir},
	})
	if err != nil {
		return entities.NewScanError(entities.ArchiveError,
			fmt.Sprintf("Failed to run %s on %s (%s)", a.command, event.Key, fileType), err)
	}

	if result.ExitCode != 0 && result.ExitCode != 1 {
		return entities.NewScanError(entities.ArchiveError,
			fmt.Sprintf("Failed to extract %s (%s), %s exited with %d: %s",
				event.Key, fileType, a.command, result.ExitCode, truncate(result.Output)), nil)
	}

	if err := a.fs.Remove(archivePath); err != nil {
		return entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("failed to remove archive %s after extraction", event.Key), err)
	}

	oversized, err := a.oversizedMembers(ws.PayloadDir)
	if err != nil {
		return entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("failed to list members of %s", event.Key), err)
	}

	if len(oversized) > 0 {
		return entities.NewScanError(entities.FileTooLargeError,
			fmt.Sprintf("Archive %s contains files %v which are at greater than the scan engine max of %d bytes",
				event.Key, oversized, a.maxBytes), nil)
	}

	return nil
}

func (a *ArchiveExpander) oversizedMembers(root string) ([]string, error) {
	oversized := make([]string, 0)

	err := afero.Walk(a.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode().IsRegular() && info.Size() > a.maxBytes {
			name, relErr := filepath.Rel(root, path)
			if relErr != nil {
				name = path
			}
			oversized = append(oversized, filepath.ToSlash(name))
		}

		return nil
	})

	sort.Strings(oversized)

	return oversized, err
}

// detect only enriches log lines and error messages, a failure is not fatal.
func (a *ArchiveExpander) detect(path string) fileutils.FileType {
	file, err := a.fs.Open(path)
	if err != nil {
		return fileutils.FileType{}
	}
	defer file.Close()

	fileType, err := fileutils.Detect(file)
	if err != nil {
		a.logger.Debugw("failed to detect archive type", "path", path, "error", err)
	}

	return fileType
}

// truncate keeps the tail of the tool output, cut on a rune boundary.
func truncate(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) <= maxToolOutput {
		return text
	}

	start := len(text) - maxToolOutput
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}

	return text[start:]
}
