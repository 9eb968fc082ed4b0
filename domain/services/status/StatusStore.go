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

package status

import (
	"context"
	"errors"
	"fmt"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/ports/out"
	"scan-sentinel/logging"

	"github.com/uber-go/tally/v4"
)

const TagKey = "scan-status"

// Store reads and writes the scan-status tag of an object, keeping every other tag intact.
type Store struct {
	tagger       out.ObjectTagger
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewStore(tagger out.ObjectTagger, metricsScope tally.Scope, logger logging.Logger) *Store {
	return &Store{tagger: tagger, metricsScope: metricsScope, logger: logger}
}

// Read returns StatusNone when the tag is absent and StatusDeleted when the object is gone.
func (s *Store) Read(ctx context.Context, ref entities.ObjectRef) (entities.ObjectStatus, error) {
	tags, err := s.tagger.GetTags(ctx, ref)
	if errors.Is(err, entities.ErrObjectNotFound) {
		return entities.StatusDeleted, nil
	}

	if err != nil {
		return entities.StatusNone, entities.NewScanError(entities.StorageAccessError,
			fmt.Sprintf("failed to read tags of %s", describe(ref)), err)
	}

	for _, tag := range tags {
		if tag.Key == TagKey {
			return entities.ObjectStatus(tag.Value), nil
		}
	}

	return entities.StatusNone, nil
}

// Write merges the status into the current tag set and puts the whole set back.
// A failed read of the current tags degrades to an empty set.
func (s *Store) Write(ctx context.Context, ref entities.ObjectRef, status entities.ObjectStatus) error {
	current, err := s.tagger.GetTags(ctx, ref)
	if err != nil {
		s.logger.Warnw("failed to read current tags, writing status alone",
			"bucket", ref.Bucket, "key", ref.Key, "version_id", ref.VersionID, "error", err)
		current = nil
	}

	merged := MergeTag(current, entities.Tag{Key: TagKey, Value: status.String()})

	if err := s.tagger.PutTags(ctx, ref, merged); err != nil {
		return entities.NewScanError(entities.StorageAccessError,
			fmt.Sprintf("failed to tag %s with %s", describe(ref), status), err)
	}

	s.metricsScope.Tagged(map[string]string{"status": status.String()}).Counter("status").Inc(1)
	s.logger.Infow("status written", "bucket", ref.Bucket, "key", ref.Key, "version_id", ref.VersionID, "status", status)

	return nil
}

// MergeTag returns a copy of tags where tag replaces every entry with the same key.
// The first occurrence keeps its position, later duplicates are dropped.
func MergeTag(tags []entities.Tag, tag entities.Tag) []entities.Tag {
	merged := make([]entities.Tag, 0, len(tags)+1)
	replaced := false

	for _, current := range tags {
		if current.Key != tag.Key {
			merged = append(merged, current)
			continue
		}

		if !replaced {
			merged = append(merged, tag)
			replaced = true
		}
	}

	if !replaced {
		merged = append(merged, tag)
	}

	return merged
}

func describe(ref entities.ObjectRef) string {
	if ref.VersionID == "" {
		return fmt.Sprintf("s3://%s/%s", ref.Bucket, ref.Key)
	}

	return fmt.Sprintf("s3://%s/%s (version %s)", ref.Bucket, ref.Key, ref.VersionID)
}
