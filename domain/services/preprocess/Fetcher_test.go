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
	"errors"
	"fmt"
	"io"
	"scan-sentinel/domain/entities"
	"scan-sentinel/logging"
	"scan-sentinel/mocks"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, fs afero.Fs) entities.Workspace {
	t.Helper()

	ws := entities.Workspace{ID: "req", Root: "/mnt/req", PayloadDir: "/mnt/req/payload", TempDir: "/mnt/req/tmp"}
	require.NoError(t, fs.MkdirAll(ws.PayloadDir, 0755))
	require.NoError(t, fs.MkdirAll(ws.TempDir, 0755))

	return ws
}

func TestFetch(t *testing.T) {
	t.Run("keeps the key structure and targets the version", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		fs := afero.NewMemMapFs()
		ws := newWorkspace(t, fs)
		event := entities.ScanEvent{Bucket: "bucket", Key: "a/b/file.txt", Size: 7, VersionID: "v1"}

		storage := mocks.NewMockObjectStorage(mockCtrl)
		storage.EXPECT().Download(gomock.Any(), event.Ref(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ entities.ObjectRef, writer io.WriterAt) error {
				_, err := writer.WriteAt([]byte("content"), 0)
				return err
			})

		path, err := NewFetcher(fs, storage, logging.NewDiscardLog()).Fetch(context.Background(), ws, event)
		require.NoError(t, err)
		assert.Equal(t, "/mnt/req/payload/a/b/file.txt", path)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("download failure carries the upstream error and version", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		fs := afero.NewMemMapFs()
		ws := newWorkspace(t, fs)
		event := entities.ScanEvent{Bucket: "bucket", Key: "file.txt", VersionID: "v9"}

		storage := mocks.NewMockObjectStorage(mockCtrl)
		storage.EXPECT().Download(gomock.Any(), event.Ref(), gomock.Any()).Return(fmt.Errorf("AccessDenied: %w", errors.New("forbidden")))

		_, err := NewFetcher(fs, storage, logging.NewDiscardLog()).Fetch(context.Background(), ws, event)

		assert.True(t, errors.Is(err, entities.ErrStorageAccess))
		assert.Contains(t, entities.FailureMessage(err), "AccessDenied")
		assert.Contains(t, entities.FailureMessage(err), "v9")
	})

	t.Run("keys escaping the workspace are rejected", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		fs := afero.NewMemMapFs()
		ws := newWorkspace(t, fs)

		_, err := NewFetcher(fs, mocks.NewMockObjectStorage(mockCtrl), logging.NewDiscardLog()).
			Fetch(context.Background(), ws, entities.ScanEvent{Bucket: "bucket", Key: "../../etc/passwd"})

		assert.True(t, errors.Is(err, entities.ErrWorkspace))
	})
}
