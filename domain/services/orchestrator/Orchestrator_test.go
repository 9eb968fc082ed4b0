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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/domain/services/definitions"
	"scan-sentinel/domain/services/preprocess"
	"scan-sentinel/domain/services/scan"
	"scan-sentinel/domain/services/status"
	"scan-sentinel/domain/services/workspace"
	"scan-sentinel/logging"
	"scan-sentinel/mocks"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

const (
	mountPath = "/mnt/scan"
	defsDir   = "/mnt/scan/defs"
	maxBytes  = 64
)

type fakeStorage struct {
	mu          sync.Mutex
	objects     map[entities.ObjectRef][]byte
	tags        map[entities.ObjectRef][]entities.Tag
	downloads   []entities.ObjectRef
	tagWrites   []entities.ObjectRef
	getTagsErr  error
	downloadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[entities.ObjectRef][]byte{}, tags: map[entities.ObjectRef][]entities.Tag{}}
}

func (f *fakeStorage) put(ref entities.ObjectRef, content string, tags ...entities.Tag) {
	f.objects[ref] = []byte(content)
	f.tags[ref] = tags
}

func (f *fakeStorage) Download(_ context.Context, ref entities.ObjectRef, writer io.WriterAt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.downloads = append(f.downloads, ref)
	if f.downloadErr != nil {
		return f.downloadErr
	}

	content, ok := f.objects[ref]
	if !ok {
		return fmt.Errorf("NoSuchKey: %w", entities.ErrObjectNotFound)
	}

	_, err := writer.WriteAt(content, 0)

	return err
}

func (f *fakeStorage) Upload(context.Context, string, string, io.Reader) error {
	return errors.New("not used")
}

func (f *fakeStorage) GetTags(_ context.Context, ref entities.ObjectRef) ([]entities.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getTagsErr != nil {
		return nil, f.getTagsErr
	}

	if _, ok := f.objects[ref]; !ok {
		return nil, entities.ErrObjectNotFound
	}

	return append([]entities.Tag(nil), f.tags[ref]...), nil
}

func (f *fakeStorage) PutTags(_ context.Context, ref entities.ObjectRef, tags []entities.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tagWrites = append(f.tagWrites, ref)
	if _, ok := f.objects[ref]; !ok {
		return entities.ErrObjectNotFound
	}

	f.tags[ref] = tags

	return nil
}

func (f *fakeStorage) status(ref entities.ObjectRef) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tag := range f.tags[ref] {
		if tag.Key == status.TagKey {
			return tag.Value
		}
	}

	return ""
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// failingMkdirFs fails MkdirAll for paths ending with suffix.
type failingMkdirFs struct {
	afero.Fs
	suffix string
}

func (f *failingMkdirFs) MkdirAll(path string, perm os.FileMode) error {
	if strings.HasSuffix(path, f.suffix) {
		return errors.New("no space left on device")
	}

	return f.Fs.MkdirAll(path, perm)
}

type commandMatcher string

func (m commandMatcher) Matches(x interface{}) bool {
	command, ok := x.(out.Command)
	return ok && command.Name == string(m)
}

func (m commandMatcher) String() string {
	return "command " + string(m)
}

type fixture struct {
	fs           afero.Fs
	storage      *fakeStorage
	runner       *mocks.MockCommandRunner
	clock        *fakeClock
	orchestrator *Orchestrator
}

func newFixture(t *testing.T, mockCtrl *gomock.Controller) *fixture {
	t.Helper()

	return newFixtureOn(t, mockCtrl, afero.NewMemMapFs())
}

func newFixtureOn(t *testing.T, mockCtrl *gomock.Controller, fs afero.Fs) *fixture {
	t.Helper()

	f := &fixture{
		fs:      fs,
		storage: newFakeStorage(),
		runner:  mocks.NewMockCommandRunner(mockCtrl),
		clock:   &fakeClock{now: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)},
	}

	logger := logging.NewDiscardLog()
	statusStore := status.NewStore(f.storage, tally.NoopScope, logger)
	workspaces := workspace.NewManager(f.fs, mountPath, logger)
	fetcher := preprocess.NewFetcher(f.fs, f.storage, logger)
	expander := preprocess.NewArchiveExpander(f.fs, f.runner, "7za", maxBytes, logger)
	tool := definitions.NewUpdateTool(f.fs, f.runner, "freshclam", "")
	updater := definitions.NewUpdater(tool, entities.NewDefinitionCache(defsDir), f.clock, "/tmp/freshclam.conf",
		"https://defs.example.com", time.Hour, tally.NoopScope, logger)
	scanner := scan.NewExecutor(f.runner, "clamscan", maxBytes, tally.NoopScope, logger)

	f.orchestrator = NewOrchestrator(statusStore, workspaces, fetcher, expander, updater, scanner, tally.NoopScope, logger)

	return f
}

func (f *fixture) expectRefresh(exitCode int) *gomock.Call {
	return f.runner.EXPECT().Run(gomock.Any(), commandMatcher("freshclam")).Return(out.CommandResult{ExitCode: exitCode}, nil)
}

func (f *fixture) expectScan(exitCode int, output string) *gomock.Call {
	return f.runner.EXPECT().Run(gomock.Any(), commandMatcher("clamscan")).Return(out.CommandResult{ExitCode: exitCode, Output: []byte(output)}, nil)
}

func (f *fixture) assertWorkspaceGone(t *testing.T, requestID string) {
	t.Helper()

	exists, err := afero.Exists(f.fs, mountPath+"/"+requestID)
	require.NoError(t, err)
	assert.False(t, exists, "workspace of %s still exists", requestID)
}

func TestProcessVerdicts(t *testing.T) {
	t.Run("clean unversioned object", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
		f.storage.put(ref, "hello", entities.Tag{Key: "owner", Value: "team"})
		f.expectRefresh(0)
		f.expectScan(0, "Infected files: 0")

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 123, RequestID: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, entities.StatusClean, verdict.Status)
		assert.Equal(t, "b", verdict.InputBucket)
		assert.Equal(t, "f.txt", verdict.InputKey)
		assert.Equal(t, entities.VerdictSource, verdict.Source)

		record, err := json.Marshal(verdict)
		require.NoError(t, err)
		assert.NotContains(t, string(record), "version_id")

		assert.Equal(t, "CLEAN", f.storage.status(ref))
		assert.Contains(t, f.storage.tags[ref], entities.Tag{Key: "owner", Value: "team"})
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("infected versioned object targets the version everywhere", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt", VersionID: "v1"}
		f.storage.put(ref, "X5O!P%@AP")
		f.expectRefresh(0)
		f.expectScan(1, "Eicar-Signature FOUND")

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 123, VersionID: "v1", RequestID: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, entities.StatusInfected, verdict.Status)
		assert.Equal(t, "v1", verdict.VersionID)

		record, err := json.Marshal(verdict)
		require.NoError(t, err)
		assert.Contains(t, string(record), `"version_id":"v1"`)
		assert.Contains(t, string(record), `"status":"INFECTED"`)

		assert.Equal(t, "INFECTED", f.storage.status(ref))
		assert.Equal(t, []entities.ObjectRef{ref}, f.storage.downloads)
		for _, written := range f.storage.tagWrites {
			assert.Equal(t, ref, written)
		}
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("request id is generated when missing", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		f.storage.put(entities.ObjectRef{Bucket: "b", Key: "f.txt"}, "hello")
		f.expectRefresh(0)
		f.expectScan(0, "")

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5})
		require.NoError(t, err)

		infos, err := afero.ReadDir(f.fs, mountPath)
		require.NoError(t, err)
		for _, info := range infos {
			assert.Equal(t, "defs", info.Name(), "only the definitions dir is left")
		}
	})
}

func TestProcessFailures(t *testing.T) {
	t.Run("engine exit 2 tags ERROR and purges the workspace", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "dir/f.txt"}
		f.storage.put(ref, "hello")
		f.expectRefresh(0)
		f.expectScan(2, "Can't open database")

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "dir/f.txt", Size: 5, RequestID: "req-1"})

		var invocationErr *entities.InvocationError
		require.True(t, errors.As(err, &invocationErr))
		assert.True(t, errors.Is(err, entities.ErrEngine))
		assert.Equal(t, entities.StatusError, invocationErr.Record.Status)
		assert.Equal(t, "ClamAV exited with unexpected code: 2.Can't open database", invocationErr.Record.Message)
		assert.Equal(t, invocationErr.Record, verdict)

		var record map[string]string
		require.NoError(t, json.Unmarshal([]byte(err.Error()), &record))
		assert.Equal(t, "ERROR", record["status"])
		assert.Equal(t, "dir/f.txt", record["input_key"])

		assert.Equal(t, "ERROR", f.storage.status(ref))
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("archive with an oversized member fails with the member name", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "big.zip"}
		f.storage.put(ref, strings.Repeat("z", maxBytes+1))
		f.runner.EXPECT().Run(gomock.Any(), commandMatcher("7za")).DoAndReturn(func(context.Context, out.Command) (out.CommandResult, error) {
			require.NoError(t, afero.WriteFile(f.fs, mountPath+"/req-1/payload/huge.bin", []byte(strings.Repeat("x", maxBytes+1)), 0644))
			return out.CommandResult{ExitCode: 0}, nil
		})

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "big.zip", Size: maxBytes + 1, RequestID: "req-1"})

		var invocationErr *entities.InvocationError
		require.True(t, errors.As(err, &invocationErr))
		assert.True(t, errors.Is(err, entities.ErrFileTooLarge))
		assert.Contains(t, invocationErr.Record.Message, "huge.bin")
		assert.Equal(t, "ERROR", f.storage.status(ref))
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("archive within the member limit is scanned", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "big.zip"}
		f.storage.put(ref, strings.Repeat("z", maxBytes+1))
		gomock.InOrder(
			f.runner.EXPECT().Run(gomock.Any(), commandMatcher("7za")).DoAndReturn(func(context.Context, out.Command) (out.CommandResult, error) {
				require.NoError(t, afero.WriteFile(f.fs, mountPath+"/req-1/payload/small.txt", []byte("small"), 0644))
				return out.CommandResult{ExitCode: 1}, nil
			}),
			f.expectRefresh(0),
			f.expectScan(0, ""),
		)

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "big.zip", Size: maxBytes + 1, RequestID: "req-1"})
		require.NoError(t, err)
		assert.Equal(t, entities.StatusClean, verdict.Status)
	})

	t.Run("fetch failure carries the upstream message", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt", VersionID: "v7"}
		f.storage.put(ref, "hello")
		f.storage.downloadErr = errors.New("AccessDenied: Access Denied")

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5, VersionID: "v7", RequestID: "req-1"})

		var invocationErr *entities.InvocationError
		require.True(t, errors.As(err, &invocationErr))
		assert.True(t, errors.Is(err, entities.ErrStorageAccess))
		assert.Contains(t, invocationErr.Record.Message, "Access Denied")
		assert.Contains(t, invocationErr.Record.Message, "v7")
		assert.Equal(t, "v7", invocationErr.Record.VersionID)
		assert.Equal(t, "ERROR", f.storage.status(ref))
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("definition update failure is fatal", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
		f.storage.put(ref, "hello")
		f.expectRefresh(1)

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5, RequestID: "req-1"})

		assert.True(t, errors.Is(err, entities.ErrDefinitionUpdate))
		assert.Equal(t, "ERROR", f.storage.status(ref))
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("partial workspace allocation is purged", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixtureOn(t, mockCtrl, &failingMkdirFs{Fs: afero.NewMemMapFs(), suffix: "/tmp"})
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
		f.storage.put(ref, "hello")

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5, RequestID: "req-1"})

		assert.Equal(t, entities.WorkspaceError, entities.KindOf(err))
		assert.Equal(t, "ERROR", f.storage.status(ref))
		assert.Empty(t, f.storage.downloads)
		f.assertWorkspaceGone(t, "req-1")
	})

	t.Run("invalid event naming an object is tagged ERROR", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
		f.storage.put(ref, "hello")

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: -1, RequestID: "req-1"})

		var invocationErr *entities.InvocationError
		require.True(t, errors.As(err, &invocationErr))
		assert.Equal(t, entities.StorageAccessError, entities.KindOf(err))
		assert.Equal(t, "ERROR", f.storage.status(ref))
		assert.Empty(t, f.storage.downloads)
	})

	t.Run("invalid event fails without storage side effects", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)

		_, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Key: "f.txt", Size: 5})

		var invocationErr *entities.InvocationError
		require.True(t, errors.As(err, &invocationErr))
		assert.Equal(t, entities.StorageAccessError, entities.KindOf(err))
		assert.Equal(t, entities.StatusError, invocationErr.Record.Status)
		assert.Empty(t, f.storage.tagWrites)
		assert.Empty(t, f.storage.downloads)
	})
}

func TestProcessShortCircuits(t *testing.T) {
	t.Run("pseudo directory is skipped without touching storage", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		f.storage.getTagsErr = errors.New("must not be called")

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "folder/", RequestID: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, entities.StatusSkip, verdict.Status)
		assert.Empty(t, f.storage.tagWrites)
		assert.Empty(t, f.storage.downloads)
	})

	t.Run("object marked SKIP is not scanned", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
		f.storage.put(ref, "hello", entities.Tag{Key: status.TagKey, Value: "SKIP"})

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5, RequestID: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, entities.StatusSkip, verdict.Status)
		assert.Equal(t, "SKIP", f.storage.status(ref))
		assert.Empty(t, f.storage.tagWrites)
		assert.Empty(t, f.storage.downloads)
	})

	t.Run("object gone is reported DELETED", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "gone.txt", Size: 5, RequestID: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, entities.StatusDeleted, verdict.Status)
		assert.Empty(t, f.storage.tagWrites)
		assert.Empty(t, f.storage.downloads)
	})

	t.Run("status read failure does not block the scan", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
		f.storage.put(ref, "hello")
		f.storage.getTagsErr = errors.New("SlowDown")
		f.expectRefresh(0)
		f.expectScan(0, "")

		verdict, err := f.orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5, RequestID: "req-1"})
		require.NoError(t, err)

		assert.Equal(t, entities.StatusClean, verdict.Status)
		assert.Equal(t, "CLEAN", f.storage.status(ref))
	})
}

func TestProcessRedelivery(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
	f.storage.put(ref, "hello", entities.Tag{Key: status.TagKey, Value: "IN_PROGRESS"})
	f.expectRefresh(0).Times(1)
	f.expectScan(0, "").Times(2)

	event := entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5}
	for _, requestID := range []string{"req-1", "req-2"} {
		event.RequestID = requestID
		verdict, err := f.orchestrator.Process(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, entities.StatusClean, verdict.Status)
	}

	assert.Equal(t, []entities.Tag{{Key: status.TagKey, Value: "CLEAN"}}, f.storage.tags[ref])
}
