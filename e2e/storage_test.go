//go:build e2e

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

package e2e

import (
	"bytes"
	"context"
	"errors"
	adaptersout "scan-sentinel/adapters/out"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/services/status"
	"scan-sentinel/logging"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bsm/redislock"
	"github.com/uber-go/tally/v4"
)

type writerAt struct {
	buf bytes.Buffer
}

func (w *writerAt) WriteAt(p []byte, off int64) (int, error) {
	if int(off) != w.buf.Len() {
		return 0, errors.New("out of order write")
	}
	return w.buf.Write(p)
}

func (suite *E2E) newStorage() *adaptersout.S3Storage {
	return adaptersout.NewS3Storage(suite.session, nil)
}

func (suite *E2E) TestStatusTagsKeepOtherTags() {
	ctx := context.Background()
	suite.uploadObject(ctx, "reports/q1.pdf", []byte("quarterly report"), "owner=payments")

	store := status.NewStore(suite.newStorage(), tally.NoopScope, logging.NewDiscardLog())
	ref := entities.ObjectRef{Bucket: suite.bucketName, Key: "reports/q1.pdf"}

	current, err := store.Read(ctx, ref)
	suite.Require().NoError(err)
	suite.Equal(entities.StatusNone, current)

	suite.Require().NoError(store.Write(ctx, ref, entities.StatusInProgress))
	suite.Require().NoError(store.Write(ctx, ref, entities.StatusClean))

	current, err = store.Read(ctx, ref)
	suite.Require().NoError(err)
	suite.Equal(entities.StatusClean, current)

	output, err := suite.s3Client.GetObjectTagging(ctx, &awss3.GetObjectTaggingInput{
		Bucket: aws.String(suite.bucketName),
		Key:    aws.String("reports/q1.pdf"),
	})
	suite.Require().NoError(err)

	tags := map[string]string{}
	for _, tag := range output.TagSet {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	suite.Equal(map[string]string{"owner": "payments", status.TagKey: "CLEAN"}, tags)
}

func (suite *E2E) TestDownloadAndMissingObject() {
	ctx := context.Background()
	suite.uploadObject(ctx, "dir/my file.txt", []byte("hello scanner"), "")

	storage := suite.newStorage()

	writer := &writerAt{}
	suite.Require().NoError(storage.Download(ctx, entities.ObjectRef{Bucket: suite.bucketName, Key: "dir/my file.txt"}, writer))
	suite.Equal("hello scanner", writer.buf.String())

	err := storage.Download(ctx, entities.ObjectRef{Bucket: suite.bucketName, Key: "missing.txt"}, &writerAt{})
	suite.ErrorIs(err, entities.ErrObjectNotFound)

	store := status.NewStore(storage, tally.NoopScope, logging.NewDiscardLog())
	current, err := store.Read(ctx, entities.ObjectRef{Bucket: suite.bucketName, Key: "missing.txt"})
	suite.Require().NoError(err)
	suite.Equal(entities.StatusDeleted, current)
}

func (suite *E2E) TestMirrorLock() {
	first := adaptersout.NewCache(mockCache, "", false)
	second := adaptersout.NewCache(mockCache, "", false)

	suite.Require().NoError(first.Lock("definitions-mirror-sync", time.Minute))
	suite.ErrorIs(second.Lock("definitions-mirror-sync", time.Minute), redislock.ErrNotObtained)

	suite.Require().NoError(first.Unlock("definitions-mirror-sync"))
	suite.Require().NoError(second.Lock("definitions-mirror-sync", time.Minute))
	suite.Require().NoError(second.Unlock("definitions-mirror-sync"))
	suite.Error(second.Unlock("definitions-mirror-sync"))
}
