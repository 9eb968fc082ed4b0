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
	"errors"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/services/preprocess"
	"scan-sentinel/domain/services/scan"
	"scan-sentinel/domain/services/status"
	"scan-sentinel/domain/services/workspace"
	"scan-sentinel/logging"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

func TestFailureReporter(t *testing.T) {
	t.Run("workspace is purged even when the ERROR tag cannot be written", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		storage := newFakeStorage()
		workspaces := workspace.NewManager(fs, mountPath, logging.NewDiscardLog())
		reporter := NewFailureReporter(status.NewStore(storage, tally.NoopScope, logging.NewDiscardLog()), workspaces, tally.NoopScope, logging.NewDiscardLog())

		ws, err := workspaces.Allocate("req-1")
		require.NoError(t, err)

		event := entities.ScanEvent{Bucket: "b", Key: "gone.txt", VersionID: "v2", RequestID: "req-1"}
		cause := entities.NewScanError(entities.ArchiveError, "7za exited with unexpected code: 2.", nil)

		invocationErr := reporter.Report(context.Background(), event, &ws, cause)

		assert.Equal(t, entities.ScanVerdict{
			Source:      entities.VerdictSource,
			InputBucket: "b",
			InputKey:    "gone.txt",
			Status:      entities.StatusError,
			Message:     "7za exited with unexpected code: 2.",
			VersionID:   "v2",
		}, invocationErr.Record)
		assert.True(t, errors.Is(invocationErr, entities.ErrArchive))
		assert.Len(t, storage.tagWrites, 1)

		exists, err := afero.Exists(fs, ws.Root)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("errors without a kind keep their text", func(t *testing.T) {
		reporter := NewFailureReporter(nil, nil, tally.NoopScope, logging.NewDiscardLog())

		invocationErr := reporter.Reject(entities.ScanEvent{Key: "k"}, errors.New("boom"))

		assert.Equal(t, "boom", invocationErr.Record.Message)
		assert.Equal(t, entities.StatusError, invocationErr.Record.Status)
	})
}

func TestHandler(t *testing.T) {
	t.Run("verdicts are written to the next stage", func(t *testing.T) {
		f := newFixture(t, nil)
		handler := NewHandler(f.orchestrator, logging.NewDiscardLog())
		output := make(chan *entities.ScanOutcome, 1)
		ack := entities.NewMessageAck("receipt", 1)

		err := handler.Handle(context.Background(), &entities.ScanRequest{Event: entities.ScanEvent{Bucket: "b", Key: "dir/"}, Ack: ack},
			entities.NewOutputWriter(output))
		require.NoError(t, err)

		outcome := <-output
		assert.Equal(t, entities.StatusSkip, outcome.Verdict.Status)
		assert.Same(t, ack, outcome.Request.Ack)
		assert.False(t, outcome.Failed)
	})

	t.Run("failed invocations are returned", func(t *testing.T) {
		f := newFixture(t, nil)
		handler := NewHandler(f.orchestrator, logging.NewDiscardLog())

		err := handler.Handle(context.Background(), &entities.ScanRequest{Event: entities.ScanEvent{Key: "f.txt"}},
			entities.NewOutputWriter(make(chan *entities.ScanOutcome)))

		var invocationErr *entities.InvocationError
		assert.True(t, errors.As(err, &invocationErr))
	})
}

type panicScanner struct{}

func (panicScanner) Scan(context.Context, entities.Workspace, string) (scan.Outcome, error) {
	panic("engine wrapper bug")
}

type freshDefinitions struct{}

func (freshDefinitions) Refresh(context.Context) error { return nil }

func (freshDefinitions) Dir() string { return defsDir }

func TestProcessPanic(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	fs := afero.NewMemMapFs()
	storage := newFakeStorage()
	ref := entities.ObjectRef{Bucket: "b", Key: "f.txt"}
	storage.put(ref, "hello")

	logger := logging.NewDiscardLog()
	orchestrator := NewOrchestrator(
		status.NewStore(storage, tally.NoopScope, logger),
		workspace.NewManager(fs, mountPath, logger),
		preprocess.NewFetcher(fs, storage, logger),
		preprocess.NewArchiveExpander(fs, nil, "7za", maxBytes, logger),
		freshDefinitions{},
		panicScanner{},
		tally.NoopScope,
		logger,
	)

	_, err := orchestrator.Process(context.Background(), entities.ScanEvent{Bucket: "b", Key: "f.txt", Size: 5, RequestID: "req-1"})

	var invocationErr *entities.InvocationError
	require.True(t, errors.As(err, &invocationErr))
	assert.Contains(t, invocationErr.Record.Message, "engine wrapper bug")
	assert.Equal(t, "ERROR", storage.status(ref))

	exists, err := afero.Exists(fs, mountPath+"/req-1")
	require.NoError(t, err)
	assert.False(t, exists)
}
