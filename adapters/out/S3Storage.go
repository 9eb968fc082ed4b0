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

package out

import (
	"context"
	"errors"
	"fmt"
	"io"
	"scan-sentinel/domain/entities"
	"scan-sentinel/pkg/awsutils"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Error codes S3 answers with when the object, or the requested version of it, is gone.
var notFoundCodes = map[string]struct{}{
	s3.ErrCodeNoSuchKey: {},
	"NotFound":          {},
	"NoSuchVersion":     {},
}

type S3Storage struct {
	svc awsutils.S3
}

func NewS3Storage(awsSession *session.Session, awsConfig *aws.Config) *S3Storage {
	svc := awsutils.S3{}
	svc.Init(awsSession, awsConfig)

	return &S3Storage{svc: svc}
}

func (s *S3Storage) Download(ctx context.Context, ref entities.ObjectRef, writer io.WriterAt) error {
	return mapStorageError(s.svc.DownloadFromS3Bucket(ctx, writer, ref.Bucket, ref.Key, ref.VersionID))
}

func (s *S3Storage) Upload(ctx context.Context, bucket, key string, reader io.Reader) error {
	return s.svc.UploadToS3Bucket(ctx, reader, bucket, key)
}

func (s *S3Storage) GetTags(ctx context.Context, ref entities.ObjectRef) ([]entities.Tag, error) {
	tagSet, err := s.svc.GetTagsFromObject(ctx, ref.Bucket, ref.Key, ref.VersionID)
	if err != nil {
		return nil, mapStorageError(err)
	}

	return fromS3Tags(tagSet), nil
}

func (s *S3Storage) PutTags(ctx context.Context, ref entities.ObjectRef, tags []entities.Tag) error {
	return mapStorageError(s.svc.PutTagsOnObject(ctx, ref.Bucket, ref.Key, ref.VersionID, toS3Tags(tags)))
}

func mapStorageError(err error) error {
	if err == nil {
		return nil
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		if _, ok := notFoundCodes[awsErr.Code()]; ok {
			return fmt.Errorf("%w: %v", entities.ErrObjectNotFound, err)
		}
	}

	return err
}

func fromS3Tags(tagSet []*s3.Tag) []entities.Tag {
	tags := make([]entities.Tag, 0, len(tagSet))
	for _, tag := range tagSet {
		tags = append(tags, entities.Tag{Key: aws.StringValue(tag.Key), Value: aws.StringValue(tag.Value)})
	}

	return tags
}

func toS3Tags(tags []entities.Tag) []*s3.Tag {
	tagSet := make([]*s3.Tag, 0, len(tags))
	for _, tag := range tags {
		tagSet = append(tagSet, &s3.Tag{Key: aws.String(tag.Key), Value: aws.String(tag.Value)})
	}

	return tagSet
}
