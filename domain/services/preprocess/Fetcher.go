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
	"path/filepath"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"

	"github.com/spf13/afero"
)

const defaultDirPermission = 0755

// Fetcher copies one object, or one version of it, into the payload directory of a workspace.
type Fetcher struct {
	fs     afero.Fs
	reader out.ObjectReader
	logger logging.Logger
}

func NewFetcher(fs afero.Fs, reader out.ObjectReader, logger logging.Logger) *Fetcher {
	return &Fetcher{fs: fs, reader: reader, logger: logger}
}

// Fetch returns the local path of the downloaded object. The key path structure is kept.
func (f *Fetcher) Fetch(ctx context.Context, ws entities.Workspace, event entities.ScanEvent) (string, error) {
	path, err := ws.PayloadPath(event.Key)
	if err != nil {
		return "", entities.NewScanError(entities.WorkspaceError, err.Error(), nil)
	}

	if err := f.fs.MkdirAll(filepath.Dir(path), defaultDirPermission); err != nil {
		return "", entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("failed to create directory for %s", event.Key), err)
	}

	file, err := f.fs.Create(path)
	if err != nil {
		return "", entities.NewScanError(entities.WorkspaceError,
			fmt.Sprintf("failed to create file for %s", event.Key), err)
	}
	defer file.Close()

	f.logger.Debugw("downloading object", "bucket", event.Bucket, "key", event.Key, "version_id", event.VersionID, "path", path)

	if err := f.reader.Download(ctx, event.Ref(), file); err != nil {
		return "", entities.NewScanError(entities.StorageAccessError, fetchFailure(event, err), err)
	}

	return path, nil
}

func fetchFailure(event entities.ScanEvent, err error) string {
	if event.VersionID == "" {
		return fmt.Sprintf("Failed to download s3://%s/%s: %v", event.Bucket, event.Key, err)
	}

	return fmt.Sprintf("Failed to download s3://%s/%s version %s: %v", event.Bucket, event.Key, event.VersionID, err)
}
