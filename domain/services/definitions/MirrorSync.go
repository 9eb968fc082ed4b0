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
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"
	"time"

	"github.com/spf13/afero"
	"github.com/uber-go/tally/v4"
)

const (
	mirrorLockKey     = "definitions-mirror-sync"
	mirrorLastSyncKey = "definitions-mirror-last-sync"
	mirrorLockTTL     = 10 * time.Minute
	mirrorConfName    = "freshclam.conf"
)

// Files kept in the mirror bucket. The private mirror serves them to every replica.
var mirrorFiles = []string{"bytecode.cvd", "daily.cvd", "main.cvd", mirrorConfName}

var publicMirrorConfig = []string{
	"DNSDatabaseInfo current.cvd.clamav.net",
	"DatabaseMirror  database.clamav.net",
}

type MirrorStorage interface {
	out.ObjectReader
	out.ObjectWriter
}

// MirrorSync keeps the definitions bucket behind the private mirror up to date with the public
// mirror. Only one replica syncs at a time and the public mirror is hit at a bounded rate.
type MirrorSync struct {
	fs           afero.Fs
	storage      MirrorStorage
	tool         *UpdateTool
	lock         out.Cache
	limiter      out.RateLimiter
	bucket       string
	prefix       string
	scratchDir   string
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewMirrorSync(fs afero.Fs, storage MirrorStorage, tool *UpdateTool, lock out.Cache, limiter out.RateLimiter,
	bucket, prefix, scratchDir string, metricsScope tally.Scope, logger logging.Logger) *MirrorSync {
	return &MirrorSync{
		fs:           fs,
		storage:      storage,
		tool:         tool,
		lock:         lock,
		limiter:      limiter,
		bucket:       bucket,
		prefix:       prefix,
		scratchDir:   scratchDir,
		metricsScope: metricsScope,
		logger:       logger,
	}
}

// Run syncs immediately and then on every tick until the context is canceled.
func (m *MirrorSync) Run(ctx context.Context, interval time.Duration) {
	m.logger.Infow("Start of mirror sync", "bucket", m.bucket, "interval", interval.String())
	m.syncAndReport(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Infow("End of mirror sync")
			return
		case <-ticker.C:
			m.syncAndReport(ctx)
		}
	}
}

func (m *MirrorSync) syncAndReport(ctx context.Context) {
	err := m.Sync(ctx)
	if err == nil {
		return
	}

	m.metricsScope.Counter("mirror_sync_failure").Inc(1)

	failure := entities.UpdateFailure{Source: entities.UpdateSource, Message: entities.FailureMessage(err)}
	record, marshalErr := json.Marshal(failure)
	if marshalErr != nil {
		record = []byte(failure.Message)
	}

	m.logger.Errorw("definitions mirror sync failed", "record", string(record), "error", err)
}

// Sync returns nil without doing anything when the rate limit is exhausted or another replica holds the lock.
func (m *MirrorSync) Sync(ctx context.Context) error {
	if !m.limiter.IsRequestAllowed() {
		m.logger.Infow("mirror sync rate limited, skipping")
		return nil
	}

	if err := m.lock.Lock(mirrorLockKey, mirrorLockTTL); err != nil {
		m.logger.Infow("mirror sync held by another replica, skipping", "error", err)
		return nil
	}

	defer func() {
		if err := m.lock.Unlock(mirrorLockKey); err != nil {
			m.logger.Warnw("failed to release mirror sync lock", "error", err)
		}
	}()

	if err := m.fs.MkdirAll(m.scratchDir, 0755); err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to create %s", m.scratchDir), err)
	}

	m.download(ctx)

	configFile := filepath.Join(m.scratchDir, mirrorConfName)
	if err := m.tool.EnsureConfig(configFile, publicMirrorConfig...); err != nil {
		return err
	}

	if err := m.tool.Update(ctx, configFile, m.scratchDir); err != nil {
		return err
	}

	uploaded, err := m.upload(ctx)
	if err != nil {
		return err
	}

	if err := m.lock.Set(mirrorLastSyncKey, time.Now().UTC().Format(time.RFC3339), 0); err != nil {
		m.logger.Warnw("failed to record mirror sync time", "error", err)
	}

	m.metricsScope.Counter("mirror_sync_success").Inc(1)
	m.logger.Infow("definitions mirror synced", "bucket", m.bucket, "files", uploaded)

	return nil
}

// download seeds the scratch dir with what the bucket already has. Missing objects are expected.
func (m *MirrorSync) download(ctx context.Context) {
	for _, name := range mirrorFiles {
		local := filepath.Join(m.scratchDir, name)

		file, err := m.fs.Create(local)
		if err != nil {
			m.logger.Warnw("failed to create local definition file", "file", local, "error", err)
			continue
		}

		err = m.storage.Download(ctx, entities.ObjectRef{Bucket: m.bucket, Key: m.key(name)}, file)
		file.Close()

		if err != nil {
			m.logger.Debugw("definition file not downloaded", "file", name, "error", err)
			_ = m.fs.Remove(local)
		}
	}
}

func (m *MirrorSync) upload(ctx context.Context) (int, error) {
	infos, err := afero.ReadDir(m.fs, m.scratchDir)
	if err != nil {
		return 0, entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to list %s", m.scratchDir), err)
	}

	uploaded := 0
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}

		if err := m.uploadFile(ctx, info.Name()); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	return uploaded, nil
}

func (m *MirrorSync) uploadFile(ctx context.Context, name string) error {
	file, err := m.fs.Open(filepath.Join(m.scratchDir, name))
	if err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError, fmt.Sprintf("failed to open %s", name), err)
	}
	defer file.Close()

	if err := m.storage.Upload(ctx, m.bucket, m.key(name), file); err != nil {
		return entities.NewScanError(entities.DefinitionUpdateError,
			fmt.Sprintf("failed to upload %s to %s: %v", name, m.bucket, err), err)
	}

	return nil
}

func (m *MirrorSync) key(name string) string {
	if m.prefix == "" {
		return name
	}

	return path.Join(m.prefix, name)
}
